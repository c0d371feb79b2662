package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/radialtree/pkg/cache"
	"github.com/matzehuels/radialtree/pkg/layout"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete decode → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, data []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		DocHash:   cache.Hash(data),
		Artifacts: make(map[string][]byte),
	}
	layoutKey := r.Keyer.LayoutKey(result.DocHash, opts.LayoutKeyOpts())

	// All artifacts cached: skip decode and layout entirely.
	if !opts.Refresh {
		if artifacts, ok := r.cachedArtifacts(ctx, layoutKey, opts); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			r.Logger.Debug("artifacts from cache", "formats", opts.Formats)
			return result, nil
		}
	}

	// Stage 1: Decode
	decodeStart := time.Now()
	raw, err := Decode(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	result.Stats.DecodeTime = time.Since(decodeStart)

	// Stage 2: Layout
	layoutStart := time.Now()
	s, err := OpenSession(ctx, raw, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	defer s.Close()
	result.Tree = s.Tree()
	result.Layout = s.Layout()
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.NodeCount = s.Tree().Len()
	result.Stats.VisibleCount = result.Layout.Len()

	r.Logger.Info("computed layout",
		"nodes", result.Stats.NodeCount,
		"visible", result.Stats.VisibleCount,
		"duration", result.Stats.LayoutTime)

	if data, err := json.Marshal(result.Layout); err == nil {
		_ = r.Cache.Set(ctx, layoutKey, data, cache.LayoutTTL)
	}

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, err := Render(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	for format, data := range artifacts {
		_ = r.Cache.Set(ctx, r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format)), data, cache.ArtifactTTL)
	}

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo computes the settled layout of a document with caching
// and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, data []byte, opts Options) (layout.Layout, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, false, err
	}

	cacheKey := r.Keyer.LayoutKey(cache.Hash(data), opts.LayoutKeyOpts())
	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var l layout.Layout
			if err := json.Unmarshal(cached, &l); err == nil {
				return l, true, nil
			}
			// A corrupt entry falls through to recompute.
		}
	}

	raw, err := Decode(ctx, data, opts)
	if err != nil {
		return layout.Layout{}, false, err
	}
	s, err := OpenSession(ctx, raw, opts)
	if err != nil {
		return layout.Layout{}, false, err
	}
	defer s.Close()

	l := s.Layout()
	if data, err := json.Marshal(l); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.LayoutTTL)
	}
	return l, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, data []byte, opts Options) (layout.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, data, opts)
	return l, err
}

func (r *Runner) cachedArtifacts(ctx context.Context, layoutKey string, opts Options) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(layoutKey, opts.ArtifactKeyOpts(format)))
		if err != nil || !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, len(artifacts) > 0
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
