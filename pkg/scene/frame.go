package scene

import (
	"slices"
	"time"

	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// Sprite is a node marker sampled at one instant.
type Sprite struct {
	ID        tree.NodeID `json:"id"`
	Kind      Kind        `json:"kind"`
	Depth     int         `json:"depth"`
	Collapsed bool        `json:"collapsed,omitempty"`
	Opacity   float64     `json:"opacity"`
	layout.Polar
}

// LinkSprite is a link sampled at one instant.
type LinkSprite struct {
	Child   tree.NodeID `json:"child"`
	Parent  tree.NodeID `json:"parent"`
	Kind    Kind        `json:"kind"`
	Opacity float64     `json:"opacity"`
	layout.Segment
}

// Frame is the scene sampled at one instant, ready to draw: links first,
// then markers. Visible items come in layout pre-order followed by exiting
// items by id.
type Frame struct {
	At    time.Time    `json:"-"`
	Nodes []Sprite     `json:"nodes"`
	Links []LinkSprite `json:"links"`
}

// Frame samples every item at now.
func (s *Scene) Frame(now time.Time) Frame {
	f := Frame{At: now}

	var exiting []tree.NodeID
	for id, it := range s.items {
		if !s.shown[id] {
			exiting = append(exiting, it.ID)
		}
	}
	slices.Sort(exiting)
	order := append(slices.Clone(s.visible), exiting...)

	for _, id := range order {
		it := s.items[id]
		t := it.Transition
		f.Nodes = append(f.Nodes, Sprite{
			ID:        id,
			Kind:      t.Kind,
			Depth:     it.Depth,
			Collapsed: it.Collapsed,
			Opacity:   t.Opacity(now, s.ease),
			Polar:     t.At(now, s.ease),
		})
		li, ok := s.links[id]
		if !ok {
			continue
		}
		lt := li.transition
		f.Links = append(f.Links, LinkSprite{
			Child:   id,
			Parent:  li.link.Parent,
			Kind:    lt.Kind,
			Opacity: opacity(lt.Kind, s.ease(lt.Progress(now))),
			Segment: lt.At(now, s.ease),
		})
	}
	return f
}

// Sprite returns the sprite of id in f.
func (f Frame) Sprite(id tree.NodeID) (Sprite, bool) {
	for _, sp := range f.Nodes {
		if sp.ID == id {
			return sp, true
		}
	}
	return Sprite{}, false
}
