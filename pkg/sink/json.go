package sink

import (
	"encoding/json"

	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/scene"
	"github.com/matzehuels/radialtree/pkg/tree"
	"github.com/matzehuels/radialtree/pkg/viewport"
)

type jsonOutput struct {
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Transform viewport.Transform `json:"transform"`
	Tooltip   *interact.Tooltip  `json:"tooltip,omitempty"`
	Plan      *jsonPlan          `json:"plan,omitempty"`
	Nodes     []jsonNode         `json:"nodes"`
	Links     []jsonLink         `json:"links"`
}

type jsonNode struct {
	ID          tree.NodeID `json:"id"`
	Parent      tree.NodeID `json:"parent,omitempty"`
	Label       string      `json:"label"`
	Detail      string      `json:"detail,omitempty"`
	URL         string      `json:"url,omitempty"`
	Depth       int         `json:"depth"`
	Collapsed   bool        `json:"collapsed,omitempty"`
	HasChildren bool        `json:"has_children,omitempty"`
	Kind        scene.Kind  `json:"kind"`
	Angle       float64     `json:"angle"`
	Radius      float64     `json:"radius"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Opacity     float64     `json:"opacity"`
}

type jsonLink struct {
	Child   tree.NodeID `json:"child"`
	Parent  tree.NodeID `json:"parent"`
	Kind    scene.Kind  `json:"kind"`
	Path    string      `json:"path"`
	Opacity float64     `json:"opacity"`
}

type jsonPlan struct {
	Summary    string                 `json:"summary"`
	DurationMS int64                  `json:"duration_ms"`
	Nodes      []scene.Transition     `json:"nodes"`
	Links      []scene.LinkTransition `json:"links"`
}

// RenderJSON encodes the snapshot: every sampled marker and link with its
// tree metadata, the viewport transform, a visible tooltip and the plan that
// produced the frame. Clients animate the plan's from/to positions.
func RenderJSON(s Snapshot) ([]byte, error) {
	out := jsonOutput{
		Width:     s.Width,
		Height:    s.Height,
		Transform: s.Transform,
		Nodes:     make([]jsonNode, 0, len(s.Frame.Nodes)),
		Links:     make([]jsonLink, 0, len(s.Frame.Links)),
	}
	if s.Tooltip.Visible {
		tip := s.Tooltip
		out.Tooltip = &tip
	}
	if s.Plan != nil {
		out.Plan = &jsonPlan{
			Summary:    s.Plan.Summary(),
			DurationMS: s.Plan.Duration.Milliseconds(),
			Nodes:      s.Plan.Nodes,
			Links:      s.Plan.Links,
		}
	}

	for _, sp := range s.Frame.Nodes {
		pt := sp.Polar.Point()
		jn := jsonNode{
			ID:        sp.ID,
			Depth:     sp.Depth,
			Collapsed: sp.Collapsed,
			Kind:      sp.Kind,
			Angle:     sp.Angle,
			Radius:    sp.Radius,
			X:         pt.X,
			Y:         pt.Y,
			Opacity:   sp.Opacity,
		}
		if n, ok := s.Tree.Node(sp.ID); ok {
			jn.Parent = n.Parent
			jn.Label = n.Label
			jn.Detail = n.Detail
			jn.URL = n.URL
			jn.HasChildren = n.HasChildren()
		}
		out.Nodes = append(out.Nodes, jn)
	}
	for _, l := range s.Frame.Links {
		out.Links = append(out.Links, jsonLink{
			Child:   l.Child,
			Parent:  l.Parent,
			Kind:    l.Kind,
			Path:    l.Path(),
			Opacity: l.Opacity,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
