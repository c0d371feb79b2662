// Package pipeline provides the decode → layout → render pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: read a JSON, YAML or doxygen navtree document into a raw tree
//  2. Layout: open a render session offscreen, apply the initial collapse
//     and any requested expansions, and settle the radial layout
//  3. Render: produce artifacts (SVG, JSON, DOT, PNG, PDF) in parallel
//
// Rendered artifacts are cached by document hash and options, so repeated
// renders of the same input are served from the cache.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Formats = []string{"svg", "json"}
//	result, err := runner.Execute(ctx, data, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/radialtree/pkg/cache"
	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/layout"
	"github.com/matzehuels/radialtree/pkg/session"
	"github.com/matzehuels/radialtree/pkg/tree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default container width in pixels.
	DefaultWidth = 960.0

	// DefaultHeight is the default container height in pixels.
	DefaultHeight = 960.0

	// DefaultPNGScale renders PNGs at twice the SVG resolution.
	DefaultPNGScale = 2.0
)

// Visualization engines.
const (
	// VizRadial is the built-in animated radial layout.
	VizRadial = "radial"

	// VizTwopi delegates layout to Graphviz's twopi engine.
	VizTwopi = "twopi"
)

// DefaultVizType is the default engine.
const DefaultVizType = VizRadial

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// ValidVizTypes is the set of supported engines.
var ValidVizTypes = map[string]bool{
	VizRadial: true,
	VizTwopi:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline. It is loaded from the
// TOML config file and overridden by flags or API request fields.
type Options struct {
	// Decode options
	InputFormat string `toml:"input_format" json:"input_format,omitempty"`

	// Layout options
	VizType string          `toml:"viz_type" json:"viz_type,omitempty"`
	Width   float64         `toml:"width" json:"width,omitempty"`
	Height  float64         `toml:"height" json:"height,omitempty"`
	Expand  []int           `toml:"expand" json:"expand,omitempty"` // node IDs to expand after the initial collapse
	Session session.Options `toml:"session" json:"session"`

	// Render options
	Formats     []string `toml:"formats" json:"formats,omitempty"`
	Interactive bool     `toml:"interactive" json:"interactive,omitempty"`
	NoLabels    bool     `toml:"no_labels" json:"no_labels,omitempty"`
	Title       string   `toml:"title" json:"title,omitempty"`
	PNGScale    float64  `toml:"png_scale" json:"png_scale,omitempty"`

	// Runtime options (not serialized)
	Refresh bool        `toml:"-" json:"-"`
	Logger  *log.Logger `toml:"-" json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tree is the normalized document. It is nil when every artifact came
	// from the cache.
	Tree *tree.Tree

	// DocHash is the content hash of the input document.
	DocHash string

	// Layout is the settled layout that was rendered.
	Layout layout.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	VisibleCount int
	DecodeTime   time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	o := Options{Session: session.DefaultOptions()}
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	return o
}

// LoadConfig reads a TOML config file over [DefaultOptions]. A missing file
// is not an error and yields the defaults.
func LoadConfig(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}
	md, err := toml.DecodeFile(path, &opts)
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidOptions, err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return opts, errors.New(errors.ErrCodeInvalidOptions, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	return opts, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/radialtree/config.toml, or
// the platform equivalent.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "radialtree", "config.toml")
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid format: %q (must be one of: svg, json, dot, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVizType checks that an engine is valid.
func ValidateVizType(vizType string) error {
	if !ValidVizTypes[vizType] {
		return errors.New(errors.ErrCodeInvalidOptions, "invalid viz_type: %q (must be one of: radial, twopi)", vizType)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.VizType == "" {
		o.VizType = DefaultVizType
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.Session.SetDefaults()
	o.Session.Logger = o.Logger
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if err := errors.ValidateSize(o.Width, o.Height); err != nil {
		return err
	}
	return o.Session.Validate()
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.PNGScale == 0 {
		o.PNGScale = DefaultPNGScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.IsTwopi() && slices.Contains(o.Formats, FormatJSON) {
		return errors.New(errors.ErrCodeUnsupported, "json output requires the radial engine")
	}
	return nil
}

// IsTwopi reports whether Graphviz lays out the tree.
func (o *Options) IsTwopi() bool { return o.VizType == VizTwopi }

// DocumentFormat returns the input format to decode with.
func (o *Options) DocumentFormat() (tree.Format, error) {
	f, err := tree.ParseFormat(o.InputFormat)
	if err != nil {
		return f, errors.Wrap(errors.ErrCodeInvalidFormat, err, "input format")
	}
	return f, nil
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:         o.Width,
		Height:        o.Height,
		CollapseDepth: o.Session.CollapseDepth,
		Expand:        o.Expand,
		Margin:        o.Session.Margin,
		Separation:    [2]float64{o.Session.Separation.Sibling, o.Session.Separation.Cousin},
		RingWidth:     o.Session.RingWidth,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      o.VizType + "/" + format,
		Interactive: o.Interactive,
		Zoom:        o.PNGScale,
		Labels:      !o.NoLabels,
		Title:       o.Title,
	}
}

// String summarizes the options for logs.
func (o *Options) String() string {
	return fmt.Sprintf("%s %gx%g depth=%d formats=%v", o.VizType, o.Width, o.Height, o.Session.CollapseDepth, o.Formats)
}
