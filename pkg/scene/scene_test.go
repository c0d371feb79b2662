package scene

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/tree"
)

const (
	root tree.NodeID = 1
	nA   tree.NodeID = 2
	nA1  tree.NodeID = 3
	nA2  tree.NodeID = 4
	nB   tree.NodeID = 5
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fixture is root → [A, B], A → [A1, A2] with A collapsed.
func fixture(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.NewAdapter().Normalize(&tree.RawNode{Label: "root", Children: []*tree.RawNode{
		{Label: "A", Children: []*tree.RawNode{{Label: "A1"}, {Label: "A2"}}},
		{Label: "B"},
	}})
	if _, err := tr.Collapse(nA); err != nil {
		t.Fatal(err)
	}
	return tr
}

func compute(tr *tree.Tree) layout.Layout { return layout.Compute(tr, 960, 960) }

func TestReconcileInitialEntersFromCentre(t *testing.T) {
	s := New(time.Second)
	l := compute(fixture(t))
	plan := s.Reconcile(t0, l)

	if got := plan.IDs(Enter); !slices.Equal(got, []tree.NodeID{root, nA, nB}) {
		t.Fatalf("enter = %v", got)
	}
	if plan.Count(Update)+plan.Count(Exit) != 0 {
		t.Errorf("unexpected update/exit: %s", plan.Summary())
	}
	for _, tr := range plan.Nodes {
		if tr.From.Radius != 0 {
			t.Errorf("node %d enters from %+v, want centre", tr.ID, tr.From)
		}
		n, _ := l.Node(tr.ID)
		if tr.To != n.Polar {
			t.Errorf("node %d target %+v, want %+v", tr.ID, tr.To, n.Polar)
		}
	}
	if len(plan.Links) != 2 {
		t.Errorf("links = %d, want 2", len(plan.Links))
	}
}

func TestReconcileWideFanLinks(t *testing.T) {
	raw := &tree.RawNode{Label: "root"}
	for range 2000 {
		raw.Children = append(raw.Children, &tree.RawNode{Label: "leaf"})
	}
	plan := New(time.Second).Reconcile(t0, compute(tree.NewAdapter().Normalize(raw)))

	if len(plan.Links) != 2000 {
		t.Fatalf("links = %d, want 2000", len(plan.Links))
	}
	for _, lt := range plan.Links {
		nt, ok := plan.Node(lt.Child)
		if !ok || lt.Kind != Enter || lt.From != layout.Collapsed(nt.From) {
			t.Fatalf("link %d = %+v, want collapsed at %+v", lt.Child, lt, nt.From)
		}
	}
}

func TestReconcileExpandEntersFromParent(t *testing.T) {
	tr := fixture(t)
	s := New(time.Second)
	before := compute(tr)
	s.Reconcile(t0, before)

	_, _ = tr.Expand(nA)
	now := t0.Add(2 * time.Second)
	plan := s.Reconcile(now, compute(tr))

	if got := plan.IDs(Enter); !slices.Equal(got, []tree.NodeID{nA1, nA2}) {
		t.Fatalf("enter = %v", got)
	}
	if got := plan.IDs(Update); !slices.Equal(got, []tree.NodeID{root, nA, nB}) {
		t.Fatalf("update = %v", got)
	}
	a, _ := before.Node(nA)
	for _, id := range []tree.NodeID{nA1, nA2} {
		nt, _ := plan.Node(id)
		if nt.From != a.Polar {
			t.Errorf("node %d enters from %+v, want A's position %+v", id, nt.From, a.Polar)
		}
		lt, ok := plan.Link(id)
		if !ok || lt.Kind != Enter || lt.From != layout.Collapsed(a.Polar) {
			t.Errorf("link %d = %+v", id, lt)
		}
	}
	b, _ := before.Node(nB)
	if upd, _ := plan.Node(nB); upd.From != b.Polar {
		t.Errorf("B update should start at its settled position, got %+v", upd.From)
	}
}

func TestReconcileCollapseExitsToParent(t *testing.T) {
	tr := fixture(t)
	s := New(time.Second)
	s.Reconcile(t0, compute(tr))
	_, _ = tr.Expand(nA)
	s.Reconcile(t0.Add(2*time.Second), compute(tr))

	_, _ = tr.Collapse(nA)
	now := t0.Add(4 * time.Second)
	after := compute(tr)
	plan := s.Reconcile(now, after)

	if got := plan.IDs(Exit); !slices.Equal(got, []tree.NodeID{nA1, nA2}) {
		t.Fatalf("exit = %v", got)
	}
	a, _ := after.Node(nA)
	for _, id := range []tree.NodeID{nA1, nA2} {
		nt, _ := plan.Node(id)
		if nt.To != a.Polar {
			t.Errorf("node %d exits to %+v, want %+v", id, nt.To, a.Polar)
		}
		lt, _ := plan.Link(id)
		if lt.Kind != Exit || lt.To != layout.Collapsed(a.Polar) {
			t.Errorf("link %d = %+v", id, lt)
		}
	}

	if _, ok := s.Item(nA1); !ok {
		t.Fatal("exiting item removed before its transition finished")
	}
	if n := s.Prune(now.Add(time.Second)); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if _, ok := s.Item(nA1); ok {
		t.Error("exited item should be pruned")
	}
}

func TestReconcileRoundTripTargets(t *testing.T) {
	tr := fixture(t)
	s := New(time.Second)
	first := s.Reconcile(t0, compute(tr))

	_, _ = tr.Expand(nA)
	s.Reconcile(t0.Add(2*time.Second), compute(tr))
	_, _ = tr.Collapse(nA)
	last := s.Reconcile(t0.Add(4*time.Second), compute(tr))

	for _, want := range first.Nodes {
		got, ok := last.Node(want.ID)
		if !ok || got.To != want.To {
			t.Errorf("node %d target %+v, want %+v", want.ID, got.To, want.To)
		}
	}
}

func TestReconcileComposesMidTransition(t *testing.T) {
	tr := fixture(t)
	s := New(time.Second)
	s.Reconcile(t0, compute(tr))

	_, _ = tr.Expand(nA)
	start := t0.Add(2 * time.Second)
	expand := s.Reconcile(start, compute(tr))

	mid := start.Add(300 * time.Millisecond)
	_, _ = tr.Collapse(nA)
	collapse := s.Reconcile(mid, compute(tr))

	for _, id := range []tree.NodeID{root, nA, nB, nA1, nA2} {
		prev, _ := expand.Node(id)
		next, _ := collapse.Node(id)
		want := prev.At(mid, CubicInOut)
		if next.From != want {
			t.Errorf("node %d: from %+v, want visual position %+v", id, next.From, want)
		}
	}
	// Bookkeeping now holds the new targets.
	it, _ := s.Item(nB)
	bt, _ := collapse.Node(nB)
	if it.Target != bt.To {
		t.Errorf("B target %+v, want %+v", it.Target, bt.To)
	}
}

func TestReconcileReentryMidExit(t *testing.T) {
	tr := fixture(t)
	_, _ = tr.Expand(nA)
	s := New(time.Second)
	s.Reconcile(t0, compute(tr))

	_, _ = tr.Collapse(nA)
	collapseAt := t0.Add(2 * time.Second)
	collapse := s.Reconcile(collapseAt, compute(tr))

	mid := collapseAt.Add(500 * time.Millisecond)
	_, _ = tr.Expand(nA)
	plan := s.Reconcile(mid, compute(tr))

	exit, _ := collapse.Node(nA1)
	again, _ := plan.Node(nA1)
	if again.Kind != Enter {
		t.Fatalf("kind = %v, want enter", again.Kind)
	}
	if want := exit.At(mid, CubicInOut); again.From != want {
		t.Errorf("re-entry from %+v, want current position %+v", again.From, want)
	}
	if _, ok := s.Item(nA1); !ok {
		t.Error("re-entered item missing")
	}
}

func TestReconcilePartition(t *testing.T) {
	// root → [a → [a1 → [x, y], a2], b → [b1], c]
	tr := tree.NewAdapter().Normalize(&tree.RawNode{Label: "root", Children: []*tree.RawNode{
		{Label: "a", Children: []*tree.RawNode{
			{Label: "a1", Children: []*tree.RawNode{{Label: "x"}, {Label: "y"}}},
			{Label: "a2"},
		}},
		{Label: "b", Children: []*tree.RawNode{{Label: "b1"}}},
		{Label: "c"},
	}})
	toggles := []tree.NodeID{2, 3, 8, 2, 3, 8, 3, 2, 1, 1}

	s := New(time.Second)
	now := t0
	prev := map[tree.NodeID]bool{}
	s.Reconcile(now, compute(tr))
	for _, id := range tr.Visible() {
		prev[id] = true
	}

	for i, id := range toggles {
		if _, err := tr.Toggle(id); err != nil {
			t.Fatal(err)
		}
		now = now.Add(time.Duration(i*137) * time.Millisecond)
		plan := s.Reconcile(now, compute(tr))

		next := map[tree.NodeID]bool{}
		for _, v := range tr.Visible() {
			next[v] = true
		}
		seen := map[tree.NodeID]Kind{}
		for _, nt := range plan.Nodes {
			if k, dup := seen[nt.ID]; dup {
				t.Fatalf("step %d: node %d classified twice (%v, %v)", i, nt.ID, k, nt.Kind)
			}
			seen[nt.ID] = nt.Kind
		}
		for id := range union(prev, next) {
			var want Kind
			switch {
			case prev[id] && next[id]:
				want = Update
			case next[id]:
				want = Enter
			default:
				want = Exit
			}
			if got, ok := seen[id]; !ok || got != want {
				t.Errorf("step %d: node %d = %v (present %v), want %v", i, id, got, ok, want)
			}
		}
		if len(seen) != len(union(prev, next)) {
			t.Errorf("step %d: plan covers %d ids, want %d", i, len(seen), len(union(prev, next)))
		}
		prev = next
	}
}

func union(a, b map[tree.NodeID]bool) map[tree.NodeID]bool {
	out := make(map[tree.NodeID]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func TestReconcileEmptyLayout(t *testing.T) {
	tr := fixture(t)
	s := New(time.Second)
	s.Reconcile(t0, compute(tr))

	plan := s.Reconcile(t0.Add(2*time.Second), layout.Layout{})
	if plan.Count(Exit) != 3 {
		t.Fatalf("exit = %d, want 3", plan.Count(Exit))
	}
	rt, _ := plan.Node(root)
	if rt.To != rt.From {
		t.Errorf("root without surviving ancestor should exit in place: %+v", rt)
	}
}

func TestFrame(t *testing.T) {
	tr := fixture(t)
	_, _ = tr.Expand(nA)
	s := New(time.Second, WithEasing(Linear))
	s.Reconcile(t0, compute(tr))

	f := s.Frame(t0)
	for _, sp := range f.Nodes {
		if sp.Opacity != 0 || sp.Radius != 0 {
			t.Errorf("sprite %d at start = %+v", sp.ID, sp)
		}
	}
	if len(f.Links) != 4 {
		t.Errorf("links = %d, want 4", len(f.Links))
	}

	_, _ = tr.Collapse(nA)
	at := t0.Add(2 * time.Second)
	s.Reconcile(at, compute(tr))
	f = s.Frame(at.Add(250 * time.Millisecond))

	var ids []tree.NodeID
	for _, sp := range f.Nodes {
		ids = append(ids, sp.ID)
	}
	if !slices.Equal(ids, []tree.NodeID{root, nA, nB, nA1, nA2}) {
		t.Errorf("frame order = %v", ids)
	}
	sp, _ := f.Sprite(nA1)
	if sp.Kind != Exit || sp.Opacity != 0.75 {
		t.Errorf("exiting sprite = %+v", sp)
	}

	if s.Settled(at) {
		t.Error("scene should be animating")
	}
	if !s.Settled(at.Add(time.Second)) {
		t.Error("scene should be settled after the duration")
	}
}

func TestReset(t *testing.T) {
	s := New(time.Second)
	s.Reconcile(t0, compute(fixture(t)))
	s.Reset()
	if s.Len() != 0 || len(s.Visible()) != 0 {
		t.Fatal("Reset should drop all items")
	}
	plan := s.Reconcile(t0.Add(time.Second), compute(fixture(t)))
	if plan.Count(Enter) != 3 {
		t.Errorf("after reset: %s", plan.Summary())
	}
}

func TestCubicInOut(t *testing.T) {
	for in, want := range map[float64]float64{0: 0, 0.5: 0.5, 1: 1, 0.25: 0.0625} {
		if got := CubicInOut(in); got != want {
			t.Errorf("CubicInOut(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestTransitionProgressClamped(t *testing.T) {
	tr := Transition{Start: t0, Duration: time.Second, To: layout.Polar{Angle: 100}}
	if p := tr.Progress(t0.Add(-time.Second)); p != 0 {
		t.Errorf("before start = %v", p)
	}
	if p := tr.Progress(t0.Add(2 * time.Second)); p != 1 {
		t.Errorf("after end = %v", p)
	}
	if got := tr.At(t0.Add(time.Second), Linear); got.Angle != 100 {
		t.Errorf("At(end) = %+v", got)
	}
	if !(Transition{}).Done(t0) {
		t.Error("zero-duration transition should be done")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(Plan{Nodes: []Transition{{ID: 3, Kind: Exit}}})
	if err != nil {
		t.Fatal(err)
	}
	var back Plan
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Nodes[0].Kind != Exit {
		t.Errorf("kind = %v", back.Nodes[0].Kind)
	}
	var k Kind
	if err := k.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
