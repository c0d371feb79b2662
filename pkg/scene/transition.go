package scene

import (
	"fmt"
	"time"

	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// Kind classifies an item in a reconcile pass.
type Kind int

const (
	// Enter items were not visible in the previous pass.
	Enter Kind = iota
	// Update items are visible in both passes.
	Update
	// Exit items were visible in the previous pass and are gone now.
	Exit
)

var kindNames = [...]string{Enter: "enter", Update: "update", Exit: "exit"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown transition kind %q", b)
}

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// CubicInOut accelerates through the first half and decelerates through the
// second.
func CubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// progress is the linear progress of a transition at now, clamped to [0,1].
func progress(start time.Time, d time.Duration, now time.Time) float64 {
	if d <= 0 {
		return 1
	}
	p := float64(now.Sub(start)) / float64(d)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Transition moves one node marker from From to To.
type Transition struct {
	ID       tree.NodeID   `json:"id"`
	Parent   tree.NodeID   `json:"parent,omitempty"`
	Kind     Kind          `json:"kind"`
	From     layout.Polar  `json:"from"`
	To       layout.Polar  `json:"to"`
	Start    time.Time     `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Progress returns the linear progress at now in [0,1].
func (t Transition) Progress(now time.Time) float64 { return progress(t.Start, t.Duration, now) }

// Done reports whether the transition has reached its target at now.
func (t Transition) Done(now time.Time) bool { return t.Progress(now) >= 1 }

// At samples the visual position at now.
func (t Transition) At(now time.Time, ease Easing) layout.Polar {
	return t.From.Lerp(t.To, ease(t.Progress(now)))
}

// Opacity returns the marker opacity at now: entering items fade in, exiting
// items fade out.
func (t Transition) Opacity(now time.Time, ease Easing) float64 {
	return opacity(t.Kind, ease(t.Progress(now)))
}

func opacity(k Kind, p float64) float64 {
	switch k {
	case Enter:
		return p
	case Exit:
		return 1 - p
	}
	return 1
}

// LinkTransition moves one link, keyed by its child, from From to To.
type LinkTransition struct {
	Child    tree.NodeID    `json:"child"`
	Parent   tree.NodeID    `json:"parent"`
	Kind     Kind           `json:"kind"`
	From     layout.Segment `json:"from"`
	To       layout.Segment `json:"to"`
	Start    time.Time      `json:"-"`
	Duration time.Duration  `json:"duration"`
}

// Progress returns the linear progress at now in [0,1].
func (t LinkTransition) Progress(now time.Time) float64 { return progress(t.Start, t.Duration, now) }

// Done reports whether the transition has reached its target at now.
func (t LinkTransition) Done(now time.Time) bool { return t.Progress(now) >= 1 }

// At samples the link geometry at now.
func (t LinkTransition) At(now time.Time, ease Easing) layout.Segment {
	return t.From.Lerp(t.To, ease(t.Progress(now)))
}

// Plan is the result of one reconcile pass: every node and link transition
// scheduled by it. A plan is a plain value; the host decides how to animate
// it, for example by sampling [Scene.Frame].
type Plan struct {
	Start    time.Time        `json:"start"`
	Duration time.Duration    `json:"duration"`
	Nodes    []Transition     `json:"nodes"`
	Links    []LinkTransition `json:"links"`
}

// Count returns the number of node transitions of kind k.
func (p Plan) Count(k Kind) int {
	n := 0
	for _, t := range p.Nodes {
		if t.Kind == k {
			n++
		}
	}
	return n
}

// IDs returns the node identities classified as k, in plan order.
func (p Plan) IDs(k Kind) []tree.NodeID {
	var ids []tree.NodeID
	for _, t := range p.Nodes {
		if t.Kind == k {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Node returns the transition scheduled for id.
func (p Plan) Node(id tree.NodeID) (Transition, bool) {
	for _, t := range p.Nodes {
		if t.ID == id {
			return t, true
		}
	}
	return Transition{}, false
}

// Link returns the transition scheduled for the link ending at child.
func (p Plan) Link(child tree.NodeID) (LinkTransition, bool) {
	for _, t := range p.Links {
		if t.Child == child {
			return t, true
		}
	}
	return LinkTransition{}, false
}

// Empty reports whether the plan schedules nothing.
func (p Plan) Empty() bool { return len(p.Nodes) == 0 && len(p.Links) == 0 }

// Summary formats the enter/update/exit counts, e.g. "+2 ~3 -0".
func (p Plan) Summary() string {
	return fmt.Sprintf("+%d ~%d -%d", p.Count(Enter), p.Count(Update), p.Count(Exit))
}
