package layout

import (
	"math"

	"github.com/matzehuels/radialtree/pkg/tree"
)

const (
	// DefaultMargin is the space kept free around the outermost ring for
	// labels, in pixels.
	DefaultMargin = 120.0

	// DefaultArc is the angular extent of the layout in degrees.
	DefaultArc = 360.0
)

// DefaultSeparation spaces cousins twice as far apart as siblings.
var DefaultSeparation = Separation{Sibling: 1, Cousin: 2}

// Separation controls the angular gap between neighbouring nodes on a ring.
// The gap between two neighbours is Sibling/depth when they share a parent
// and Cousin/depth otherwise, so subtrees read as groups and deeper rings,
// which have more circumference, pack tighter.
type Separation struct {
	Sibling float64 `json:"sibling" toml:"sibling"`
	Cousin  float64 `json:"cousin" toml:"cousin"`
}

// Gap returns the separation for two neighbours at depth.
func (s Separation) Gap(sameParent bool, depth int) float64 {
	if depth < 1 {
		depth = 1
	}
	if sameParent {
		return s.Sibling / float64(depth)
	}
	return s.Cousin / float64(depth)
}

// Valid reports whether both gaps are positive.
func (s Separation) Valid() bool { return s.Sibling > 0 && s.Cousin > 0 }

// Node is the computed position of one visible tree node. It is a view onto
// the tree node with the same ID and is rebuilt on every pass.
type Node struct {
	ID        tree.NodeID `json:"id"`
	Parent    tree.NodeID `json:"parent,omitempty"`
	Depth     int         `json:"depth"`
	Collapsed bool        `json:"collapsed,omitempty"` // hides at least one child
	Polar
}

// Link connects a visible parent to a visible child. Links are identified by
// their child, which has exactly one parent.
type Link struct {
	Parent tree.NodeID `json:"parent"`
	Child  tree.NodeID `json:"child"`
}

// Layout is the result of one layout pass over the visible subtree.
type Layout struct {
	Nodes     []Node  `json:"nodes"` // pre-order
	Links     []Link  `json:"links"` // pre-order by child
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Radius    float64 `json:"radius"`     // available radius
	RingWidth float64 `json:"ring_width"` // radius step per depth

	index map[tree.NodeID]int
}

// Node returns the layout entry for id.
func (l Layout) Node(id tree.NodeID) (Node, bool) {
	if l.index == nil {
		for _, n := range l.Nodes {
			if n.ID == id {
				return n, true
			}
		}
		return Node{}, false
	}
	i, ok := l.index[id]
	if !ok {
		return Node{}, false
	}
	return l.Nodes[i], true
}

// Len returns the number of visible nodes.
func (l Layout) Len() int { return len(l.Nodes) }

// Empty reports whether the layout contains no nodes.
func (l Layout) Empty() bool { return len(l.Nodes) == 0 }

// Option configures [Compute].
type Option func(*config)

type config struct {
	margin     float64
	separation Separation
	ringWidth  float64
	arc        float64
}

// WithMargin sets the label margin subtracted from the available radius.
func WithMargin(m float64) Option { return func(c *config) { c.margin = m } }

// WithSeparation overrides the sibling/cousin spacing ratio.
func WithSeparation(s Separation) Option { return func(c *config) { c.separation = s } }

// WithRingWidth fixes the radius step per depth. The step is still capped so
// that the deepest ring fits inside the available radius. Zero spreads the
// rings evenly over the available radius.
func WithRingWidth(w float64) Option { return func(c *config) { c.ringWidth = w } }

// WithArc restricts the layout to the first arc degrees of the circle.
func WithArc(deg float64) Option { return func(c *config) { c.arc = deg } }

// Compute places the visible subtree of t on concentric rings inside a
// width×height viewport.
//
// Compute is a pure function of the visible structure (node order and
// collapse state) and its arguments. An empty tree gives an empty layout; a
// root with no visible children sits alone at the centre.
func Compute(t *tree.Tree, width, height float64, opts ...Option) Layout {
	cfg := config{
		margin:     DefaultMargin,
		separation: DefaultSeparation,
		arc:        DefaultArc,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.separation.Valid() {
		cfg.separation = DefaultSeparation
	}
	if cfg.arc <= 0 || cfg.arc > 360 {
		cfg.arc = DefaultArc
	}

	l := Layout{Width: width, Height: height}
	l.Radius = math.Max(math.Min(width, height)/2-cfg.margin, 0)
	if t.Empty() {
		return l
	}

	root := buildWalkTree(t)
	maxDepth := tidy(root, cfg.separation)

	l.RingWidth = l.Radius / float64(max(maxDepth, 1))
	if cfg.ringWidth > 0 && cfg.ringWidth < l.RingWidth {
		l.RingWidth = cfg.ringWidth
	}

	minX, maxX, left, right := root.x, root.x, root, root
	root.eachBefore(func(w *walkNode) {
		if w.x < minX {
			minX, left = w.x, w
		}
		if w.x > maxX {
			maxX, right = w.x, w
		}
	})
	pad := 1.0
	if left != right {
		pad = cfg.separation.Gap(left.parent == right.parent, left.depth) / 2
	}
	tx := pad - minX
	kx := cfg.arc / (maxX + pad + tx)

	l.index = make(map[tree.NodeID]int)
	root.eachBefore(func(w *walkNode) {
		n := w.node
		ln := Node{
			ID:        n.ID,
			Parent:    n.Parent,
			Depth:     w.depth,
			Collapsed: n.IsCollapsed(),
			Polar: Polar{
				Angle:  (w.x + tx) * kx,
				Radius: float64(w.depth) * l.RingWidth,
			},
		}
		if w == root {
			ln.Parent = tree.NoNode
			if len(w.children) == 0 {
				ln.Angle = 0
			}
		} else {
			l.Links = append(l.Links, Link{Parent: w.parent.node.ID, Child: n.ID})
		}
		l.index[n.ID] = len(l.Nodes)
		l.Nodes = append(l.Nodes, ln)
	})
	return l
}
