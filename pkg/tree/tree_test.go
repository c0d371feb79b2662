package tree

import (
	"errors"
	"slices"
	"testing"
)

func sample() *RawNode {
	return &RawNode{Label: "root", Children: []*RawNode{
		{Label: "A", Detail: "class A", Children: []*RawNode{
			{Label: "A1"},
			{Label: "A2", Children: []*RawNode{{Label: "A2x"}}},
		}},
		{Label: "B"},
	}}
}

func labels(t *Tree, ids []NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, _ := t.Node(id)
		out = append(out, n.Label)
	}
	return out
}

func TestNormalizeAssignsPreorderIDs(t *testing.T) {
	a := NewAdapter()
	tr := a.Normalize(sample())

	if tr.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", tr.Len())
	}
	want := []string{"root", "A", "A1", "A2", "A2x", "B"}
	if got := labels(tr, tr.IDs()); !slices.Equal(got, want) {
		t.Errorf("pre-order = %v, want %v", got, want)
	}
	for i, id := range tr.IDs() {
		if id != NodeID(i+1) {
			t.Errorf("id[%d] = %d, want %d", i, id, i+1)
		}
	}
	a2, _ := tr.Node(4)
	if a2.Depth != 2 || a2.Parent != 2 {
		t.Errorf("A2 depth/parent = %d/%d, want 2/2", a2.Depth, a2.Parent)
	}
}

func TestNormalizeNeverReusesIDs(t *testing.T) {
	a := NewAdapter()
	first := a.Normalize(sample())
	second := a.Normalize(&RawNode{Label: "other", Children: []*RawNode{{Label: "x"}}})

	for _, id := range second.IDs() {
		if _, ok := first.Node(id); ok {
			t.Errorf("id %d reused across documents", id)
		}
	}
	if second.Root() != 7 {
		t.Errorf("second root = %d, want 7", second.Root())
	}
}

func TestNormalizeNil(t *testing.T) {
	tr := NewAdapter().Normalize(nil)
	if !tr.Empty() {
		t.Error("Normalize(nil) should be empty")
	}
	if tr.Root() != NoNode {
		t.Errorf("Root() = %d, want NoNode", tr.Root())
	}
	if v := tr.Visible(); len(v) != 0 {
		t.Errorf("Visible() = %v, want empty", v)
	}
}

func TestNormalizeCycle(t *testing.T) {
	root := &RawNode{Label: "root"}
	mid := &RawNode{Label: "mid"}
	root.Children = []*RawNode{mid}
	mid.Children = []*RawNode{root, {Label: "leaf"}}

	tr := NewAdapter().Normalize(root)

	if tr.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tr.Len())
	}
	var cut *Node
	for _, id := range tr.IDs() {
		n, _ := tr.Node(id)
		if n.Truncated {
			cut = n
		}
	}
	if cut == nil {
		t.Fatal("expected a truncated cycle point")
	}
	if cut.Label != "root" || cut.HasChildren() {
		t.Errorf("cycle point = %q with children=%v, want leaf copy of root", cut.Label, cut.HasChildren())
	}
}

func TestNormalizeSharedSubtreeIsCopied(t *testing.T) {
	shared := &RawNode{Label: "shared"}
	root := &RawNode{Label: "root", Children: []*RawNode{shared, shared, nil}}

	tr := NewAdapter().Normalize(root)

	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (nil child dropped, shared copied)", tr.Len())
	}
	for _, id := range tr.IDs()[1:] {
		if n, _ := tr.Node(id); n.Truncated {
			t.Errorf("shared node %d should not be truncated", id)
		}
	}
}

func TestNormalizeMalformedIsLeaf(t *testing.T) {
	root := &RawNode{Label: "root", Children: []*RawNode{
		{Label: "bad", Malformed: true, Children: []*RawNode{{Label: "lost"}}},
	}}
	tr := NewAdapter().Normalize(root)
	bad, _ := tr.Node(2)
	if bad.HasChildren() || !bad.Truncated {
		t.Errorf("malformed node should be a truncated leaf")
	}
}

func TestCollapseExpandRoundTrip(t *testing.T) {
	tr := NewAdapter().Normalize(sample())
	a, _ := tr.Node(2)
	before := slices.Clone(a.Children())

	changed, err := tr.Collapse(2)
	if err != nil || !changed {
		t.Fatalf("Collapse() = %v, %v", changed, err)
	}
	if a.Children() != nil {
		t.Error("collapsed node should have no visible children")
	}
	if !slices.Equal(a.Hidden(), before) {
		t.Errorf("Hidden() = %v, want %v", a.Hidden(), before)
	}
	if tr.IsVisible(3) {
		t.Error("A1 should be hidden")
	}

	changed, err = tr.Expand(2)
	if err != nil || !changed {
		t.Fatalf("Expand() = %v, %v", changed, err)
	}
	if !slices.Equal(a.Children(), before) {
		t.Errorf("Children() = %v, want %v", a.Children(), before)
	}
	if a.Hidden() != nil {
		t.Error("expanded node should have no hidden children")
	}
}

func TestCollapsePreservesDescendantState(t *testing.T) {
	tr := NewAdapter().Normalize(sample())
	if _, err := tr.Collapse(4); err != nil { // A2
		t.Fatal(err)
	}
	if _, err := tr.Collapse(2); err != nil { // A
		t.Fatal(err)
	}
	if _, err := tr.Expand(2); err != nil {
		t.Fatal(err)
	}
	a2, _ := tr.Node(4)
	if a2.State() != Collapsed {
		t.Error("A2 should stay collapsed after its ancestor is re-expanded")
	}
	want := []string{"root", "A", "A1", "A2", "B"}
	if got := labels(tr, tr.Visible()); !slices.Equal(got, want) {
		t.Errorf("Visible() = %v, want %v", got, want)
	}
}

func TestToggle(t *testing.T) {
	tr := NewAdapter().Normalize(sample())

	tests := []struct {
		name    string
		id      NodeID
		changed bool
		state   State
		err     error
	}{
		{"collapse A", 2, true, Collapsed, nil},
		{"expand A", 2, true, Expanded, nil},
		{"leaf", 3, false, Expanded, nil},
		{"unknown", 99, false, Expanded, ErrUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := tr.Toggle(tt.id)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Toggle() err = %v, want %v", err, tt.err)
			}
			if changed != tt.changed {
				t.Errorf("Toggle() changed = %v, want %v", changed, tt.changed)
			}
			if n, ok := tr.Node(tt.id); ok && n.State() != tt.state {
				t.Errorf("state = %v, want %v", n.State(), tt.state)
			}
		})
	}
}

func TestAncestors(t *testing.T) {
	tr := NewAdapter().Normalize(sample())
	if got := tr.Ancestors(5); !slices.Equal(got, []NodeID{4, 2, 1}) {
		t.Errorf("Ancestors(A2x) = %v, want [4 2 1]", got)
	}
	if got := tr.Ancestors(1); got != nil {
		t.Errorf("Ancestors(root) = %v, want nil", got)
	}
}

func TestTooltipText(t *testing.T) {
	tr := NewAdapter().Normalize(sample())
	a, _ := tr.Node(2)
	if a.TooltipText() != "class A" {
		t.Errorf("TooltipText() = %q, want detail", a.TooltipText())
	}
	b, _ := tr.Node(6)
	if b.TooltipText() != "B" {
		t.Errorf("TooltipText() = %q, want label fallback", b.TooltipText())
	}
}

func TestDescendantsIncludeHidden(t *testing.T) {
	tr := NewAdapter().Normalize(sample())
	_, _ = tr.Collapse(4)
	_, _ = tr.Collapse(2)
	if got := tr.Descendants(2); !slices.Equal(got, []NodeID{3, 4, 5}) {
		t.Errorf("Descendants(A) = %v, want [3 4 5]", got)
	}
	if got := tr.Descendants(6); got != nil {
		t.Errorf("Descendants(leaf) = %v, want nil", got)
	}
	if got := tr.Descendants(99); got != nil {
		t.Errorf("Descendants(unknown) = %v, want nil", got)
	}
}
