package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/observability"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// Decode reads a document in the configured input format, sniffing the
// format when none is set. Syntax errors are INVALID_DOCUMENT errors.
func Decode(ctx context.Context, data []byte, opts Options) (*tree.RawNode, error) {
	format, err := opts.DocumentFormat()
	if err != nil {
		return nil, err
	}
	if format == tree.FormatAuto {
		format = tree.DetectFormat("", data)
	}

	hooks := observability.Pipeline()
	hooks.OnDecodeStart(ctx, string(format))
	start := time.Now()

	raw, err := tree.DecodeBytes(data, format)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode %s document", format)
	}
	hooks.OnDecodeComplete(ctx, string(format), countRaw(raw), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Debug("decoded document", "format", format, "bytes", len(data))
	}
	return raw, nil
}

func countRaw(n *tree.RawNode) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += countRaw(c)
	}
	return count
}
