package tree

// RawNode is the loosely-structured input hierarchy handed to the adapter by
// decoders or by callers building documents in code. Children may be nil,
// may repeat a pointer, and may even point back at an ancestor; [Adapter]
// copes with all of these.
type RawNode struct {
	Label    string
	Detail   string
	URL      string
	Children []*RawNode

	// Collapsed requests that the node start collapsed regardless of the
	// session's initial collapse depth.
	Collapsed bool

	// Malformed marks a node whose source could not be fully decoded (for
	// example a non-array children field). It is normalized to a leaf.
	Malformed bool
}

// Adapter turns [RawNode] hierarchies into [Tree] arenas and hands out node
// identities. One adapter belongs to one render session: identities are drawn
// from a monotonic counter in pre-order (first seen wins) and never reused,
// so normalizing a second document never aliases nodes of the first.
type Adapter struct {
	last NodeID
}

// NewAdapter returns an adapter whose first identity is 1.
func NewAdapter() *Adapter { return &Adapter{} }

// Last returns the most recently assigned identity, or NoNode if none.
func (a *Adapter) Last() NodeID { return a.last }

// Normalize converts raw into a tree. A nil raw yields an empty tree.
//
// A child that repeats one of its own ancestors is kept as a truncated leaf,
// so cyclic input always terminates. Nil children are dropped. Malformed
// nodes become leaves. Normalize never panics on bad input.
func (a *Adapter) Normalize(raw *RawNode) *Tree {
	t := &Tree{}
	if raw == nil {
		return t
	}
	onPath := make(map[*RawNode]bool)
	a.visit(t, raw, NoNode, 0, onPath)
	return t
}

func (a *Adapter) visit(t *Tree, raw *RawNode, parent NodeID, depth int, onPath map[*RawNode]bool) {
	a.last++
	n := &Node{
		ID:     a.last,
		Label:  raw.Label,
		Detail: raw.Detail,
		URL:    raw.URL,
		Parent: parent,
		Depth:  depth,
	}
	if raw.Collapsed {
		n.state = Collapsed
	}
	t.add(n)

	if raw.Malformed {
		n.Truncated = true
		return
	}

	onPath[raw] = true
	defer delete(onPath, raw)

	for _, child := range raw.Children {
		if child == nil {
			continue
		}
		if onPath[child] {
			a.last++
			t.add(&Node{
				ID:        a.last,
				Label:     child.Label,
				Detail:    child.Detail,
				URL:       child.URL,
				Parent:    n.ID,
				Depth:     depth + 1,
				Truncated: true,
			})
			continue
		}
		a.visit(t, child, n.ID, depth+1, onPath)
	}
}
