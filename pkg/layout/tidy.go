package layout

import "github.com/matzehuels/radialtree/pkg/tree"

// walkNode is the per-pass working state of the tidy tree algorithm
// (Walker's algorithm in Buchheim, Jünger and Leipert's linear-time form).
// x is the angular coordinate in separation units before scaling.
type walkNode struct {
	node     *tree.Node
	parent   *walkNode
	children []*walkNode
	depth    int
	index    int // position among siblings

	ancestor        *walkNode // a
	defaultAncestor *walkNode // A
	thread          *walkNode // t
	prelim          float64   // z
	mod             float64   // m
	change          float64   // c
	shift           float64   // s
	x               float64
}

// buildWalkTree mirrors the visible subtree of t. The returned root hangs
// under a sentinel parent so that the root needs no special casing.
func buildWalkTree(t *tree.Tree) *walkNode {
	rootNode, _ := t.Node(t.Root())
	sentinel := &walkNode{depth: -1}
	root := &walkNode{node: rootNode, parent: sentinel}
	root.ancestor = root
	sentinel.children = []*walkNode{root}

	stack := []*walkNode{root}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := w.node.Children()
		if len(kids) == 0 {
			continue
		}
		w.children = make([]*walkNode, 0, len(kids))
		for i, id := range kids {
			n, ok := t.Node(id)
			if !ok {
				continue
			}
			c := &walkNode{node: n, parent: w, depth: w.depth + 1, index: i}
			c.ancestor = c
			w.children = append(w.children, c)
		}
		for i := range w.children {
			w.children[i].index = i
		}
		stack = append(stack, w.children...)
	}
	return root
}

// eachBefore visits w and its descendants in pre-order.
func (w *walkNode) eachBefore(fn func(*walkNode)) {
	stack := []*walkNode{w}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// eachAfter visits w and its descendants in post-order, children left to
// right. firstWalk depends on the left sibling being done first.
func (w *walkNode) eachAfter(fn func(*walkNode)) {
	var order []*walkNode
	stack := []*walkNode{w}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, n)
		stack = append(stack, n.children...)
	}
	for i := len(order) - 1; i >= 0; i-- {
		fn(order[i])
	}
}

// tidy assigns x to every node of root and returns the maximum depth.
func tidy(root *walkNode, sep Separation) int {
	gap := func(a, b *walkNode) float64 {
		return sep.Gap(a.parent == b.parent, a.depth)
	}

	root.eachAfter(func(v *walkNode) { firstWalk(v, gap) })
	root.parent.mod = -root.prelim

	maxDepth := 0
	root.eachBefore(func(v *walkNode) {
		v.x = v.prelim + v.parent.mod
		v.mod += v.parent.mod
		if v.depth > maxDepth {
			maxDepth = v.depth
		}
	})
	return maxDepth
}

func firstWalk(v *walkNode, gap func(a, b *walkNode) float64) {
	siblings := v.parent.children
	var w *walkNode
	if v.index > 0 {
		w = siblings[v.index-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if w != nil {
			v.prelim = w.prelim + gap(v, w)
			v.mod = v.prelim - midpoint
		} else {
			v.prelim = midpoint
		}
	} else if w != nil {
		v.prelim = w.prelim + gap(v, w)
	}
	da := v.parent.defaultAncestor
	if da == nil {
		da = siblings[0]
	}
	v.parent.defaultAncestor = apportion(v, w, da, gap)
}

func apportion(v, w, ancestor *walkNode, gap func(a, b *walkNode) float64) *walkNode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := v.parent.children[0]
	sip, sop := vip.mod, vop.mod
	sim, som := vim.mod, vom.mod

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.ancestor = v
		shift := vim.prelim + sim - vip.prelim - sip + gap(vim, vip)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.mod
		sip += vip.mod
		som += vom.mod
		sop += vop.mod
	}
	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.mod += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.mod += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *walkNode) *walkNode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *walkNode) *walkNode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func nextAncestor(vim, v, ancestor *walkNode) *walkNode {
	if vim.ancestor.parent == v.parent {
		return vim.ancestor
	}
	return ancestor
}

func moveSubtree(wm, wp *walkNode, shift float64) {
	change := shift / float64(wp.index-wm.index)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.mod += shift
}

func executeShifts(v *walkNode) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.prelim += shift
		w.mod += shift
		change += w.change
		shift += w.shift + change
	}
}
