package pipeline

import (
	"context"
	"slices"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/sink"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// OpenSession renders raw into an offscreen container of the configured size
// and expands the nodes listed in opts.Expand, along with their ancestors,
// so that each of them is visible and open.
func OpenSession(ctx context.Context, raw *tree.RawNode, opts Options) (*session.Session, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}

	s, err := session.RenderContext(ctx, sink.NewOffscreen(opts.Width, opts.Height), raw, opts.Session)
	if err != nil {
		return nil, err
	}
	if err := expand(ctx, s, opts.Expand); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func expand(ctx context.Context, s *session.Session, ids []int) error {
	t := s.Tree()
	for _, raw := range ids {
		id := tree.NodeID(raw)
		if _, ok := t.Node(id); !ok {
			return errors.New(errors.ErrCodeNotFound, "expand: unknown node %d", raw)
		}
		// Ancestors come nearest first; open from the root outwards.
		chain := t.Ancestors(id)
		slices.Reverse(chain)
		chain = append(chain, id)
		for _, n := range chain {
			node, _ := t.Node(n)
			if !node.IsCollapsed() {
				continue
			}
			if _, err := s.DispatchContext(ctx, interact.Click{Node: n}); err != nil {
				return err
			}
		}
	}
	return nil
}
