package tree_test

import (
	"fmt"

	"github.com/matzehuels/radialtree/pkg/tree"
)

func ExampleAdapter_Normalize() {
	doc := &tree.RawNode{Label: "root", Children: []*tree.RawNode{
		{Label: "A", Children: []*tree.RawNode{{Label: "A1"}, {Label: "A2"}}},
		{Label: "B"},
	}}

	t := tree.NewAdapter().Normalize(doc)
	_, _ = t.Collapse(2)

	for _, id := range t.Visible() {
		n, _ := t.Node(id)
		fmt.Println(id, n.Label, n.State())
	}
	// Output:
	// 1 root expanded
	// 2 A collapsed
	// 5 B expanded
}
