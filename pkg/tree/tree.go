package tree

import (
	"errors"
	"slices"
)

var (
	// ErrUnknownNode is returned when an operation references a node ID that
	// does not exist in the tree.
	ErrUnknownNode = errors.New("unknown node")

	// ErrEmptyTree is returned by operations that need a root on an empty tree.
	ErrEmptyTree = errors.New("empty tree")
)

// NodeID identifies a node within a render session. IDs are assigned by an
// [Adapter] from a monotonic counter and are never reused, even across
// documents normalized by the same adapter.
type NodeID int

// NoNode is the zero NodeID. It never identifies a real node and is used as
// the parent of the root and as the "background" click target.
const NoNode NodeID = 0

// State is the expand/collapse state of a node's child list.
type State uint8

const (
	// Expanded means the node's children are visible.
	Expanded State = iota
	// Collapsed means the node's children are stored but hidden.
	Collapsed
)

// String returns "expanded" or "collapsed".
func (s State) String() string {
	if s == Collapsed {
		return "collapsed"
	}
	return "expanded"
}

// Node is a single entry in the tree arena.
//
// The child list is a tagged union: the same ordered slice is either the
// visible children (state Expanded) or the hidden children (state Collapsed).
// Toggling only flips the tag, so a collapse/expand round trip restores the
// exact same child sequence.
type Node struct {
	ID     NodeID
	Label  string
	Detail string // Tooltip text; empty means fall back to Label
	URL    string // Optional link target (doxygen href)
	Parent NodeID
	Depth  int // Distance from the root in the full tree

	// Truncated marks a node that was cut short during normalization because
	// its input repeated one of its own ancestors or was malformed.
	Truncated bool

	state    State
	children []NodeID
}

// State returns whether the node's children are shown or hidden.
func (n *Node) State() State { return n.state }

// Children returns the visible children. It is nil for collapsed nodes.
func (n *Node) Children() []NodeID {
	if n.state == Collapsed {
		return nil
	}
	return n.children
}

// Hidden returns the hidden children. It is nil for expanded nodes.
func (n *Node) Hidden() []NodeID {
	if n.state == Expanded {
		return nil
	}
	return n.children
}

// HasChildren reports whether the node owns any children, visible or not.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// IsCollapsed reports whether the node hides at least one child.
func (n *Node) IsCollapsed() bool { return n.state == Collapsed && len(n.children) > 0 }

// TooltipText returns Detail, or Label when no detail was supplied.
func (n *Node) TooltipText() string {
	if n.Detail != "" {
		return n.Detail
	}
	return n.Label
}

// Tree is an arena of nodes referenced by [NodeID]. Nodes hold no pointers to
// each other, so there are no ownership cycles.
//
// The zero value is an empty tree. Tree is not safe for concurrent use.
type Tree struct {
	nodes map[NodeID]*Node
	order []NodeID // pre-order over the full tree
	root  NodeID
}

// Root returns the root ID, or NoNode for an empty tree.
func (t *Tree) Root() NodeID {
	if t == nil {
		return NoNode
	}
	return t.root
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool { return t == nil || t.root == NoNode }

// Len returns the total number of nodes, visible or hidden.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Node returns the node with the given ID.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	if t == nil || t.nodes == nil {
		return nil, false
	}
	n, ok := t.nodes[id]
	return n, ok
}

// IDs returns every node ID in pre-order over the full tree.
func (t *Tree) IDs() []NodeID {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// Collapse hides the children of id. Descendant states are left untouched so
// that expanding again restores the previous view. It reports whether the
// visible structure changed.
func (t *Tree) Collapse(id NodeID) (bool, error) {
	n, ok := t.Node(id)
	if !ok {
		return false, ErrUnknownNode
	}
	if n.state == Collapsed || len(n.children) == 0 {
		return false, nil
	}
	n.state = Collapsed
	return true, nil
}

// Expand shows the children of id. It reports whether the visible structure
// changed.
func (t *Tree) Expand(id NodeID) (bool, error) {
	n, ok := t.Node(id)
	if !ok {
		return false, ErrUnknownNode
	}
	if n.state == Expanded {
		return false, nil
	}
	n.state = Expanded
	return len(n.children) > 0, nil
}

// Toggle flips the state of id. Leaves have nothing to toggle and report no
// change.
func (t *Tree) Toggle(id NodeID) (bool, error) {
	n, ok := t.Node(id)
	if !ok {
		return false, ErrUnknownNode
	}
	if len(n.children) == 0 {
		return false, nil
	}
	if n.state == Collapsed {
		return t.Expand(id)
	}
	return t.Collapse(id)
}

// Walk visits the visible subtree in pre-order, starting at the root. If fn
// returns false the node's children are skipped.
func (t *Tree) Walk(fn func(n *Node) bool) {
	if t.Empty() {
		return
	}
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[id]
		if !fn(n) {
			continue
		}
		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Visible returns the IDs of the visible subtree in pre-order.
func (t *Tree) Visible() []NodeID {
	var out []NodeID
	t.Walk(func(n *Node) bool {
		out = append(out, n.ID)
		return true
	})
	return out
}

// IsVisible reports whether every ancestor of id is expanded.
func (t *Tree) IsVisible(id NodeID) bool {
	n, ok := t.Node(id)
	if !ok {
		return false
	}
	for p := n.Parent; p != NoNode; {
		pn := t.nodes[p]
		if pn.state == Collapsed {
			return false
		}
		p = pn.Parent
	}
	return true
}

// Ancestors returns the chain of ancestors of id, nearest first.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	var out []NodeID
	for p := n.Parent; p != NoNode; p = t.nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// Descendants returns every descendant of id, visible or hidden, in
// pre-order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	var out []NodeID
	stack := slices.Clone(n.children)
	slices.Reverse(stack)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, c)
		kids := t.nodes[c].children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// add inserts a node under parent. The adapter is the only caller.
func (t *Tree) add(n *Node) {
	if t.nodes == nil {
		t.nodes = make(map[NodeID]*Node)
	}
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	if n.Parent == NoNode {
		t.root = n.ID
		return
	}
	p := t.nodes[n.Parent]
	p.children = append(p.children, n.ID)
}
