// Package session ties the engine together into an interactive render
// session.
//
// A [Session] owns everything one diagram needs between events: the node
// arena and its identity counter, the controller holding expand/collapse and
// tooltip state, the scene with its rendered items, the viewport and the
// drawing surface. All state changes go through [Session.Dispatch], which
// takes one [interact.Event] at a time:
//
//	s, err := session.Render(container, doc, session.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	u, err := s.Dispatch(interact.Click{Node: 2})
//	// u.Plan lists every enter/update/exit transition to animate.
//
// A Session is not safe for concurrent use. Hosts deliver events in order,
// for example from a UI loop or under the lock of a [MemoryStore] entry.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/observability"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/tree"
	"github.com/matzehuels/radialtree/pkg/viewport"
)

// Container is the host element a diagram is drawn into.
type Container interface {
	// Size returns the current pixel size. Zero or negative sizes are valid
	// answers and mean there is nothing to draw into yet.
	Size() (width, height float64)

	// NewSurface creates a drawing surface of the given size.
	NewSurface(width, height float64) (Surface, error)
}

// Surface draws updates. A surface is bound to one container size; a resize
// closes it and asks the container for a new one.
type Surface interface {
	Draw(u Update) error
	Close() error
}

// Update is the outcome of one event or render pass.
type Update struct {
	Event interact.EventKind `json:"event,omitempty"`

	// Plan is set when the event caused a layout and reconcile pass.
	Plan *scene.Plan `json:"plan,omitempty"`

	Transform  viewport.Transform `json:"transform"`
	Tooltip    interact.Tooltip   `json:"tooltip"`
	Width      float64            `json:"width"`
	Height     float64            `json:"height"`
	Generation int                `json:"generation"`

	// Skipped is set when there was no drawable viewport.
	Skipped bool `json:"skipped,omitempty"`

	// Ignored is set when the event was deliberately dropped, such as a
	// click on the background or during a zoom gesture.
	Ignored bool `json:"ignored,omitempty"`
}

// Session is one rendered diagram.
type Session struct {
	container Container
	surface   Surface
	opts      Options
	log       *log.Logger

	adapter *tree.Adapter
	ctrl    *interact.Controller
	scene   *scene.Scene
	view    *viewport.Viewport
	layout  layout.Layout

	last Update
}

// Render creates a session for doc inside container and draws it if the
// container already has a drawable size. A nil doc renders a blank diagram.
// Options are defaulted with [Options.SetDefaults] and validated.
func Render(container Container, doc *tree.RawNode, opts Options) (*Session, error) {
	return RenderContext(context.Background(), container, doc, opts)
}

// RenderContext is [Render] with a context for observability hooks.
func RenderContext(ctx context.Context, container Container, doc *tree.RawNode, opts Options) (*Session, error) {
	if container == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "container is required")
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	adapter := tree.NewAdapter()
	s := &Session{
		container: container,
		opts:      opts,
		log:       opts.Logger,
		adapter:   adapter,
		ctrl:      interact.NewController(adapter.Normalize(doc), interact.WithFade(opts.TooltipFade)),
		scene:     scene.New(opts.TransitionDuration, scene.WithEasing(opts.Easing)),
		view:      viewport.New(opts.ZoomScaleRange, viewport.WithClickGuard(opts.ClickGuard)),
	}
	s.initialize(ctx)
	if _, err := s.HandleResizeContext(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// HandleResize re-reads the container size and, when it changed into a
// drawable size, rebuilds the surface and replays a full layout.
func (s *Session) HandleResize() (Update, error) {
	return s.HandleResizeContext(context.Background())
}

// HandleResizeContext is [Session.HandleResize] with a context. Failures are
// recovered like those of [Session.DispatchContext].
func (s *Session) HandleResizeContext(ctx context.Context) (u Update, err error) {
	defer s.recoverHandler(ctx, string(interact.KindResize), "resize", time.Now(), &u, &err)

	w, h := s.container.Size()
	u, err = s.resize(ctx, w, h)
	if err != nil {
		return u, err
	}
	return s.finish(u)
}

// Dispatch handles one event.
func (s *Session) Dispatch(ev interact.Event) (Update, error) {
	return s.DispatchContext(context.Background(), ev)
}

// DispatchContext handles one event. Panics and errors inside handlers are
// recovered, logged and returned; the session stays usable either way.
func (s *Session) DispatchContext(ctx context.Context, ev interact.Event) (u Update, err error) {
	kind := "unknown"
	if ev != nil {
		kind = string(ev.Kind())
	}
	defer s.recoverHandler(ctx, kind, interact.Describe(ev), time.Now(), &u, &err)

	u, err = s.handle(ctx, ev)
	if u.Event == "" && ev != nil {
		u.Event = ev.Kind()
	}
	if err != nil {
		return u, err
	}
	return s.finish(u)
}

// recoverHandler is deferred by every entry point that runs handlers. It
// turns a panic into a HANDLER_FAILED error, logs failures and reports the
// dispatch to the observability hooks.
func (s *Session) recoverHandler(ctx context.Context, kind, desc string, start time.Time, u *Update, err *error) {
	if r := recover(); r != nil {
		*err = errors.New(errors.ErrCodeHandler, "%s handler panicked: %v", kind, r)
		*u = s.snapshot()
	}
	if *err != nil {
		s.log.Error("event failed", "event", desc, "err", *err)
	}
	observability.Render().OnDispatch(ctx, kind, time.Since(start), *err)
}

func (s *Session) handle(ctx context.Context, ev interact.Event) (Update, error) {
	now := s.opts.Clock()

	switch e := ev.(type) {
	case interact.Click:
		return s.click(ctx, now, e)

	case interact.Hover:
		if e.Node == tree.NoNode {
			s.ctrl.HoverEnd(now)
			return s.snapshot(), nil
		}
		if _, err := s.ctrl.Hover(e.Node, e.X, e.Y); err != nil {
			// The tooltip still shows sanitized text; report the bad input.
			return s.snapshot(), errors.Wrap(errors.ErrCodeHandler, err, "hover node %d", e.Node)
		}
		return s.snapshot(), nil

	case interact.HoverEnd:
		s.ctrl.HoverEnd(now)
		return s.snapshot(), nil

	case interact.Resize:
		return s.resize(ctx, e.Width, e.Height)

	case interact.Zoom:
		s.view.Zoom(now, e.Scale, e.TX, e.TY)
		return s.snapshot(), nil

	case nil:
		return s.snapshot(), errors.New(errors.ErrCodeInvalidEvent, "nil event")
	}
	return s.snapshot(), errors.New(errors.ErrCodeInvalidEvent, "unsupported event %T", ev)
}

func (s *Session) click(ctx context.Context, now time.Time, e interact.Click) (Update, error) {
	u := s.snapshot()
	switch {
	case e.Node == tree.NoNode:
		u.Ignored = true
		return u, nil
	case s.view.Gesturing(now):
		s.log.Debug("click during gesture ignored", "node", e.Node)
		u.Ignored = true
		return u, nil
	}

	changed, err := s.ctrl.Toggle(e.Node)
	if err != nil {
		return u, err
	}
	if !changed {
		u.Ignored = true
		return u, nil
	}
	if !s.view.Valid() {
		u.Skipped = true
		return u, nil
	}
	return s.relayout(ctx, now), nil
}

// resize is a hard reset: the surface is rebuilt and every item re-enters.
func (s *Session) resize(ctx context.Context, w, h float64) (Update, error) {
	if s.surface != nil {
		if err := s.surface.Close(); err != nil {
			s.log.Warn("close surface", "err", err)
		}
		s.surface = nil
	}
	s.scene.Reset()
	s.layout = layout.Layout{}

	if !s.view.Resize(w, h) {
		observability.Render().OnSkip(ctx, "empty viewport")
		s.log.Debug("render skipped", "width", w, "height", h)
		u := s.snapshot()
		u.Event = interact.KindResize
		u.Skipped = true
		return u, nil
	}

	surface, err := s.container.NewSurface(w, h)
	if err != nil {
		return s.snapshot(), errors.Wrap(errors.ErrCodeInternal, err, "create surface %gx%g", w, h)
	}
	s.surface = surface

	u := s.relayout(ctx, s.opts.Clock())
	u.Event = interact.KindResize
	return u, nil
}

// initialize runs the first full layout pass and collapses every node at or
// beyond the configured depth. Depths are structural, so this works before
// the container has a drawable size; later passes show the collapsed view.
func (s *Session) initialize(ctx context.Context) {
	w, h := s.container.Size()
	full := s.computeLayout(ctx, max(w, 0), max(h, 0))
	n := s.ctrl.CollapseBeyond(full, s.opts.CollapseDepth)
	s.log.Debug("initial collapse", "depth", s.opts.CollapseDepth, "collapsed", n)
}

func (s *Session) computeLayout(ctx context.Context, w, h float64) layout.Layout {
	start := time.Now()
	l := layout.Compute(s.ctrl.Tree(), w, h, s.opts.layoutOptions()...)
	observability.Render().OnLayout(ctx, l.Len(), time.Since(start))
	return l
}

func (s *Session) relayout(ctx context.Context, now time.Time) Update {
	w, h := s.view.Size()
	l := s.computeLayout(ctx, w, h)

	start := time.Now()
	plan := s.scene.Reconcile(now, l)
	observability.Render().OnReconcile(ctx,
		plan.Count(scene.Enter), plan.Count(scene.Update), plan.Count(scene.Exit), time.Since(start))
	s.layout = l

	u := s.snapshot()
	u.Plan = &plan
	return u
}

func (s *Session) snapshot() Update {
	w, h := s.view.Size()
	return Update{
		Transform:  s.view.Transform(),
		Tooltip:    s.ctrl.Tooltip(s.opts.Clock()),
		Width:      w,
		Height:     h,
		Generation: s.view.Generation(),
	}
}

// finish draws u on the current surface and records it.
func (s *Session) finish(u Update) (Update, error) {
	s.last = u
	if s.surface == nil || u.Skipped {
		return u, nil
	}
	if err := s.surface.Draw(u); err != nil {
		return u, fmt.Errorf("draw: %w", err)
	}
	return u, nil
}

// Load replaces the document. Identities keep counting from the previous
// document, the initial collapse runs again and every node enters afresh.
func (s *Session) Load(doc *tree.RawNode) (Update, error) {
	return s.LoadContext(context.Background(), doc)
}

// LoadContext is [Session.Load] with a context.
func (s *Session) LoadContext(ctx context.Context, doc *tree.RawNode) (u Update, err error) {
	defer s.recoverHandler(ctx, "load", "load", time.Now(), &u, &err)

	s.ctrl.Reset(s.adapter.Normalize(doc))
	s.scene.Reset()
	s.layout = layout.Layout{}
	s.initialize(ctx)
	if !s.view.Valid() {
		u = s.snapshot()
		u.Skipped = true
		return s.finish(u)
	}
	return s.finish(s.relayout(ctx, s.opts.Clock()))
}

// Close releases the drawing surface.
func (s *Session) Close() error {
	if s.surface == nil {
		return nil
	}
	err := s.surface.Close()
	s.surface = nil
	return err
}

// Tree returns the node arena.
func (s *Session) Tree() *tree.Tree { return s.ctrl.Tree() }

// Layout returns the last reconciled layout.
func (s *Session) Layout() layout.Layout { return s.layout }

// Scene returns the scene.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Viewport returns the viewport.
func (s *Session) Viewport() *viewport.Viewport { return s.view }

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Last returns the most recent update.
func (s *Session) Last() Update { return s.last }

// Now returns the session clock.
func (s *Session) Now() time.Time { return s.opts.Clock() }

// Frame samples the scene at the session clock.
func (s *Session) Frame() scene.Frame { return s.scene.Frame(s.opts.Clock()) }

// Tooltip returns the tooltip at the session clock.
func (s *Session) Tooltip() interact.Tooltip { return s.ctrl.Tooltip(s.opts.Clock()) }
