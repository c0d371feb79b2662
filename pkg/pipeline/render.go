package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/radialtree/pkg/observability"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/sink"
)

// Render generates output artifacts in the requested formats from the
// settled state of s. Formats render concurrently; PNG and PDF share one SVG.
func Render(ctx context.Context, s *session.Session, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, err := render(ctx, s, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func render(ctx context.Context, s *session.Session, opts Options) (map[string][]byte, error) {
	snap := sink.CaptureSettled(s)
	dot := sink.ToDOT(snap.Tree, sink.DOTOptions{})

	var svg []byte
	if needsSVG(opts.Formats) {
		var err error
		if svg, err = renderSVG(ctx, snap, dot, opts); err != nil {
			return nil, fmt.Errorf("render svg: %w", err)
		}
	}

	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(opts.Formats))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			var data []byte
			var err error
			switch format {
			case FormatSVG:
				data = svg
			case FormatJSON:
				data, err = sink.RenderJSON(snap)
			case FormatDOT:
				data = []byte(dot)
			case FormatPNG:
				data, err = sink.ToPNG(ctx, svg, opts.PNGScale)
			case FormatPDF:
				data, err = sink.ToPDF(ctx, svg)
			default:
				err = fmt.Errorf("unsupported format: %s", format)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderSVG(ctx context.Context, snap sink.Snapshot, dot string, opts Options) ([]byte, error) {
	if opts.IsTwopi() {
		return sink.RenderDOT(ctx, dot)
	}
	var svgOpts []sink.SVGOption
	if opts.Interactive {
		svgOpts = append(svgOpts, sink.WithInteractive())
	}
	if opts.NoLabels {
		svgOpts = append(svgOpts, sink.WithoutLabels())
	}
	if opts.Title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(opts.Title))
	}
	return sink.RenderSVG(snap, svgOpts...), nil
}

func needsSVG(formats []string) bool {
	return slices.ContainsFunc(formats, func(f string) bool {
		return f == FormatSVG || f == FormatPNG || f == FormatPDF
	})
}
