package scene

import (
	"slices"
	"time"

	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// DefaultDuration is the transition duration used when none is configured.
const DefaultDuration = 750 * time.Millisecond

// Item is the bookkeeping entry of one displayed node marker.
type Item struct {
	ID        tree.NodeID
	Parent    tree.NodeID
	Depth     int
	Collapsed bool

	// Target is the last committed position: the "previous position" the
	// next pass animates away from once this transition has finished.
	Target     layout.Polar
	Transition Transition
}

// Exiting reports whether the item is animating out of the scene.
func (it Item) Exiting() bool { return it.Transition.Kind == Exit }

type linkItem struct {
	link       layout.Link
	transition LinkTransition
}

// Option configures a [Scene].
type Option func(*Scene)

// WithEasing sets the easing used to sample transitions.
func WithEasing(e Easing) Option {
	return func(s *Scene) {
		if e != nil {
			s.ease = e
		}
	}
}

// Scene keeps the set of rendered items across layout passes and turns each
// new layout into a [Plan]. A Scene is not safe for concurrent use.
type Scene struct {
	duration time.Duration
	ease     Easing

	items   map[tree.NodeID]*Item
	links   map[tree.NodeID]*linkItem
	visible []tree.NodeID // pre-order ids of the last layout
	shown   map[tree.NodeID]bool
}

// New creates an empty scene whose transitions last d.
func New(d time.Duration, opts ...Option) *Scene {
	if d <= 0 {
		d = DefaultDuration
	}
	s := &Scene{duration: d, ease: CubicInOut}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Duration returns the transition duration.
func (s *Scene) Duration() time.Duration { return s.duration }

// Easing returns the easing used to sample transitions.
func (s *Scene) Easing() Easing { return s.ease }

// Reset drops every item. The next Reconcile enters everything from the
// centre.
func (s *Scene) Reset() {
	s.items = make(map[tree.NodeID]*Item)
	s.links = make(map[tree.NodeID]*linkItem)
	s.visible = nil
	s.shown = make(map[tree.NodeID]bool)
}

// Len returns the number of items, exiting ones included.
func (s *Scene) Len() int { return len(s.items) }

// Item returns the bookkeeping entry for id.
func (s *Scene) Item(id tree.NodeID) (Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Visible returns the ids of the last reconciled layout in pre-order.
func (s *Scene) Visible() []tree.NodeID { return slices.Clone(s.visible) }

// Position returns the visual position of id at now.
func (s *Scene) Position(id tree.NodeID, now time.Time) (layout.Polar, bool) {
	it, ok := s.items[id]
	if !ok {
		return layout.Polar{}, false
	}
	return it.Transition.At(now, s.ease), true
}

// Reconcile diffs l against the previously reconciled layout and schedules a
// transition for every node and link that changed hands.
//
// The baseline of every transition is the visual position at now, so a pass
// that arrives mid-animation continues from where the item is instead of
// jumping. Items still exiting from an earlier pass and absent from l keep
// their running transition. Bookkeeping is committed only after the whole
// plan has been computed.
func (s *Scene) Reconcile(now time.Time, l layout.Layout) Plan {
	s.Prune(now)

	plan := Plan{Start: now, Duration: s.duration}
	cur := func(id tree.NodeID) (layout.Polar, bool) { return s.Position(id, now) }

	// Enter and update, in layout pre-order.
	origin := make(map[tree.NodeID]layout.Polar, len(l.Nodes))
	for _, n := range l.Nodes {
		t := Transition{ID: n.ID, Parent: n.Parent, To: n.Polar, Start: now, Duration: s.duration}
		switch {
		case s.shown[n.ID]:
			t.Kind = Update
			t.From, _ = cur(n.ID)
		default:
			t.Kind = Enter
			t.From = s.enterOrigin(n, l, now)
		}
		origin[n.ID] = t.From
		plan.Nodes = append(plan.Nodes, t)
	}

	// Exit, in previous pre-order.
	exitTo := make(map[tree.NodeID]layout.Polar)
	for _, id := range s.visible {
		if _, ok := l.Node(id); ok {
			continue
		}
		it := s.items[id]
		from, _ := cur(id)
		to := from
		for p := it.Parent; p != tree.NoNode; {
			if ln, ok := l.Node(p); ok {
				to = ln.Polar
				break
			}
			pit, ok := s.items[p]
			if !ok {
				break
			}
			p = pit.Parent
		}
		exitTo[id] = to
		plan.Nodes = append(plan.Nodes, Transition{
			ID: id, Parent: it.Parent, Kind: Exit, From: from, To: to, Start: now, Duration: s.duration,
		})
	}

	// Links follow their child.
	for _, ln := range l.Links {
		parent, _ := l.Node(ln.Parent)
		child, _ := l.Node(ln.Child)
		t := LinkTransition{
			Child: ln.Child, Parent: ln.Parent, Start: now, Duration: s.duration,
			To: layout.Segment{Source: parent.Polar, Target: child.Polar},
		}
		if li, ok := s.links[ln.Child]; ok && s.shown[ln.Child] {
			t.Kind = Update
			t.From = li.transition.At(now, s.ease)
		} else {
			t.Kind = Enter
			if ok {
				t.From = li.transition.At(now, s.ease)
			} else {
				t.From = layout.Collapsed(origin[ln.Child])
			}
		}
		plan.Links = append(plan.Links, t)
	}
	for _, id := range s.visible {
		li, ok := s.links[id]
		if !ok {
			continue
		}
		if _, still := l.Node(id); still {
			continue
		}
		plan.Links = append(plan.Links, LinkTransition{
			Child: id, Parent: li.link.Parent, Kind: Exit, Start: now, Duration: s.duration,
			From: li.transition.At(now, s.ease),
			To:   layout.Collapsed(exitTo[id]),
		})
	}

	s.commit(plan, l)
	return plan
}

// enterOrigin is where an entering node starts: its own visual position if
// it is still fading out from an earlier pass, else the visual position of
// its nearest ancestor that was shown before, else the centre.
func (s *Scene) enterOrigin(n layout.Node, l layout.Layout, now time.Time) layout.Polar {
	if it, ok := s.items[n.ID]; ok {
		return it.Transition.At(now, s.ease)
	}
	for p := n.Parent; p != tree.NoNode; {
		if s.shown[p] {
			pos, _ := s.Position(p, now)
			return pos
		}
		pn, ok := l.Node(p)
		if !ok {
			break
		}
		p = pn.Parent
	}
	return layout.Polar{Angle: n.Angle}
}

func (s *Scene) commit(plan Plan, l layout.Layout) {
	depth := make(map[tree.NodeID]layout.Node, len(l.Nodes))
	for _, n := range l.Nodes {
		depth[n.ID] = n
	}
	for _, t := range plan.Nodes {
		it, ok := s.items[t.ID]
		if !ok {
			it = &Item{ID: t.ID}
			s.items[t.ID] = it
		}
		if n, ok := depth[t.ID]; ok {
			it.Depth, it.Collapsed = n.Depth, n.Collapsed
		}
		it.Parent = t.Parent
		it.Target = t.To
		it.Transition = t
	}
	for _, t := range plan.Links {
		s.links[t.Child] = &linkItem{
			link:       layout.Link{Parent: t.Parent, Child: t.Child},
			transition: t,
		}
	}

	s.visible = s.visible[:0]
	s.shown = make(map[tree.NodeID]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		s.visible = append(s.visible, n.ID)
		s.shown[n.ID] = true
	}
}

// Prune removes exiting items whose transition has finished at now and
// returns how many were removed.
func (s *Scene) Prune(now time.Time) int {
	removed := 0
	for id, it := range s.items {
		if it.Exiting() && it.Transition.Done(now) {
			delete(s.items, id)
			removed++
		}
	}
	for id, li := range s.links {
		if li.transition.Kind == Exit && li.transition.Done(now) {
			delete(s.links, id)
		}
	}
	return removed
}

// Settled reports whether every transition has finished at now.
func (s *Scene) Settled(now time.Time) bool {
	return !now.Before(s.SettledAt())
}

// SettledAt returns the time the last running transition finishes.
func (s *Scene) SettledAt() time.Time {
	var end time.Time
	for _, it := range s.items {
		if e := it.Transition.Start.Add(it.Transition.Duration); e.After(end) {
			end = e
		}
	}
	for _, li := range s.links {
		if e := li.transition.Start.Add(li.transition.Duration); e.After(end) {
			end = e
		}
	}
	return end
}
