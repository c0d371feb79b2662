// Package cli implements the radialtree command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/radialtree/pkg/buildinfo"
	"github.com/matzehuels/radialtree/pkg/cache"
	"github.com/matzehuels/radialtree/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "radialtree"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the TOML config file read before flags are applied.
	ConfigPath string

	// RedisAddr selects a Redis artifact cache instead of the file cache.
	RedisAddr string

	out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		ConfigPath: pipeline.DefaultConfigPath(),
		out:        os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output, such as JSON written to stdout.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Radialtree renders collapsible radial tree diagrams",
		Long: `Radialtree lays out hierarchical documents as radial trees and renders them
incrementally: expanding or collapsing a node produces a transition plan of
entering, moving and exiting nodes instead of a full redraw.

Documents are nested JSON or YAML objects, or doxygen navigation trees.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", c.ConfigPath, "config file (TOML)")
	root.PersistentFlags().StringVar(&c.RedisAddr, "redis", "", "use the Redis cache at this address")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if c.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.RedisAddr})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/radialtree/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// optionFlags binds the pipeline options shared by several commands. Flag
// values only override the config file when they were set explicitly.
type optionFlags struct {
	inputFormat string
	width       float64
	height      float64
	depth       int
	duration    time.Duration
	expand      []int
}

func (f *optionFlags) register(fs *pflag.FlagSet) {
	d := pipeline.DefaultOptions()
	fs.StringVar(&f.inputFormat, "input-format", "", "document format: json, yaml, doxygen (default: detect)")
	fs.Float64Var(&f.width, "width", d.Width, "container width in pixels")
	fs.Float64Var(&f.height, "height", d.Height, "container height in pixels")
	fs.IntVarP(&f.depth, "depth", "d", d.Session.CollapseDepth, "collapse nodes at or beyond this depth")
	fs.DurationVar(&f.duration, "duration", d.Session.TransitionDuration, "transition duration")
	fs.IntSliceVar(&f.expand, "expand", nil, "node IDs to expand after the initial collapse")
}

// options loads the config file and applies the flags that were set.
func (c *CLI) options(cmd *cobra.Command, f *optionFlags, input string) (pipeline.Options, error) {
	opts, err := pipeline.LoadConfig(c.ConfigPath)
	if err != nil {
		return opts, err
	}
	opts.Logger = c.Logger

	fs := cmd.Flags()
	if fs.Changed("input-format") {
		opts.InputFormat = f.inputFormat
	} else if opts.InputFormat == "" {
		opts.InputFormat = detectFormat(input)
	}
	if fs.Changed("width") {
		opts.Width = f.width
	}
	if fs.Changed("height") {
		opts.Height = f.height
	}
	if fs.Changed("depth") {
		opts.Session.CollapseDepth = f.depth
	}
	if fs.Changed("duration") {
		opts.Session.TransitionDuration = f.duration
	}
	if fs.Changed("expand") {
		opts.Expand = f.expand
	}
	opts.SetLayoutDefaults()
	return opts, nil
}

// detectFormat maps a file extension to an input format name. Unknown
// extensions are left to content sniffing.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".js":
		return "doxygen"
	case ".json":
		return "json"
	}
	return ""
}

// readInput reads a document from a path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
