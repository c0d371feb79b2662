package sink

import (
	"sync"
	"time"

	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/tree"
	"github.com/matzehuels/radialtree/pkg/viewport"
)

// Snapshot is everything a sink needs to draw one instant of a session.
type Snapshot struct {
	Tree      *tree.Tree
	Frame     scene.Frame
	Width     float64
	Height    float64
	Transform viewport.Transform
	Tooltip   interact.Tooltip
	Plan      *scene.Plan
}

// Capture samples s at its clock. The plan is the one produced by the most
// recent update, if any.
func Capture(s *session.Session) Snapshot { return CaptureAt(s, s.Now()) }

// CaptureSettled samples s once every running transition has finished.
func CaptureSettled(s *session.Session) Snapshot {
	at := s.Scene().SettledAt()
	if now := s.Now(); now.After(at) {
		at = now
	}
	return CaptureAt(s, at)
}

// CaptureAt samples s at an arbitrary instant.
func CaptureAt(s *session.Session, at time.Time) Snapshot {
	u := s.Last()
	return Snapshot{
		Tree:      s.Tree(),
		Frame:     s.Scene().Frame(at),
		Width:     u.Width,
		Height:    u.Height,
		Transform: u.Transform,
		Tooltip:   s.Tooltip(),
		Plan:      u.Plan,
	}
}

// Offscreen is a [session.Container] with a fixed size and no display. It is
// used by the CLI, the pipeline and the server, which render snapshots on
// demand instead of drawing live.
type Offscreen struct {
	mu       sync.Mutex
	width    float64
	height   float64
	surfaces int
	canvas   *Canvas
}

// NewOffscreen creates a container of the given size.
func NewOffscreen(width, height float64) *Offscreen {
	return &Offscreen{width: width, height: height}
}

// Size implements [session.Container].
func (o *Offscreen) Size() (float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.width, o.height
}

// SetSize changes the size reported to the session. Call
// [session.Session.HandleResize] afterwards to apply it.
func (o *Offscreen) SetSize(width, height float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.width, o.height = width, height
}

// NewSurface implements [session.Container].
func (o *Offscreen) NewSurface(width, height float64) (session.Surface, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.surfaces++
	o.canvas = &Canvas{width: width, height: height}
	return o.canvas, nil
}

// Canvas returns the current surface, or nil before the first drawable size.
func (o *Offscreen) Canvas() *Canvas {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canvas
}

// Surfaces counts the surfaces created so far.
func (o *Offscreen) Surfaces() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.surfaces
}

// Canvas is the surface of an [Offscreen] container. It keeps the updates
// drawn on it.
type Canvas struct {
	mu      sync.Mutex
	width   float64
	height  float64
	updates []session.Update
	closed  bool
}

// Draw implements [session.Surface].
func (c *Canvas) Draw(u session.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return nil
}

// Close implements [session.Surface].
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Updates returns the updates drawn so far.
func (c *Canvas) Updates() []session.Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]session.Update(nil), c.updates...)
}

// Closed reports whether the canvas was released.
func (c *Canvas) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Size returns the canvas size.
func (c *Canvas) Size() (width, height float64) { return c.width, c.height }

var (
	_ session.Container = (*Offscreen)(nil)
	_ session.Surface   = (*Canvas)(nil)
)
