// Package cache stores rendered artifacts and layouts keyed by document
// content and render options.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory; used by the CLI
//   - [RedisCache]: a shared Redis instance; used by `serve --redis`
//   - [NullCache]: stores nothing; used with --no-cache
//
// # Keys
//
// A [Keyer] builds keys from the SHA-256 of the source document plus a hash
// of every option that changes the output, so two requests share an entry
// only when they would render identical bytes. [ScopedKeyer] adds a prefix
// for separate namespaces on a shared backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live values.
const (
	LayoutTTL   = 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// LayoutKeyOpts are the options that change a computed layout.
type LayoutKeyOpts struct {
	Width         float64    `json:"w"`
	Height        float64    `json:"h"`
	CollapseDepth int        `json:"cd"`
	Expand        []int      `json:"ex,omitempty"`
	Margin        float64    `json:"m"`
	Separation    [2]float64 `json:"sep"`
	RingWidth     float64    `json:"rw,omitempty"`
}

// ArtifactKeyOpts are the options that change a rendered artifact on top
// of its layout.
type ArtifactKeyOpts struct {
	Format      string  `json:"f"`
	Interactive bool    `json:"i,omitempty"`
	Zoom        float64 `json:"z,omitempty"`
	Labels      bool    `json:"l,omitempty"`
	Title       string  `json:"t,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// DocumentKey identifies a decoded document by content hash.
	DocumentKey(docHash string) string

	// LayoutKey identifies the layout of a document under opts.
	LayoutKey(docHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies an artifact rendered from a layout.
	ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the unprefixed [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DocumentKey returns "doc:<hash>".
func (DefaultKeyer) DocumentKey(docHash string) string { return "doc:" + docHash }

// LayoutKey returns "layout:<hash(docHash, opts)>".
func (DefaultKeyer) LayoutKey(docHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", docHash, opts)
}

// ArtifactKey returns "artifact:<hash(layoutKey, opts)>".
func (DefaultKeyer) ArtifactKey(layoutKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutKey, opts)
}

// NullCache is a no-op cache: every Get misses and Set discards.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

var _ Cache = NullCache{}
