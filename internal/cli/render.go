package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/pkg/pipeline"
)

// renderFlags holds the command-line flags for the render command.
type renderFlags struct {
	optionFlags
	output      string  // output file path (or base path for multiple outputs)
	formats     string  // comma-separated output formats
	vizType     string  // radial or twopi
	interactive bool    // embed the click-to-fold script
	noLabels    bool    // omit node labels
	title       string  // SVG title
	pngScale    float64 // PNG resolution multiplier
	noCache     bool
	refresh     bool
}

// renderCommand creates the render command for generating diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render [document]",
		Short: "Render a document as a radial tree",
		Long: `Render a document as a radial tree.

The document is laid out in a container of --width x --height, nodes at or
beyond --depth start collapsed, and the nodes listed with --expand are opened
along with their ancestors. The settled diagram is written in every requested
format (svg, json, dot, png, pdf). PNG and PDF output needs rsvg-convert.

Use "-" to read the document from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(cmd, &f, args[0])
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts, &f)
		},
	}

	fs := cmd.Flags()
	f.register(fs)
	fs.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	fs.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), json, dot, png, pdf (comma-separated)")
	fs.StringVarP(&f.vizType, "type", "t", pipeline.DefaultVizType, "layout engine: radial (default), twopi")
	fs.BoolVar(&f.interactive, "interactive", false, "embed click-to-fold and tooltip script in SVG output")
	fs.BoolVar(&f.noLabels, "no-labels", false, "omit node labels")
	fs.StringVar(&f.title, "title", "", "diagram title")
	fs.Float64Var(&f.pngScale, "png-scale", pipeline.DefaultPNGScale, "PNG resolution multiplier")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "recompute even when cached")

	return cmd
}

func (c *CLI) renderOptions(cmd *cobra.Command, f *renderFlags, input string) (pipeline.Options, error) {
	opts, err := c.options(cmd, &f.optionFlags, input)
	if err != nil {
		return opts, err
	}
	fs := cmd.Flags()
	if fs.Changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if fs.Changed("type") {
		opts.VizType = f.vizType
	}
	if fs.Changed("interactive") {
		opts.Interactive = f.interactive
	}
	if fs.Changed("no-labels") {
		opts.NoLabels = f.noLabels
	}
	if fs.Changed("title") {
		opts.Title = f.title
	}
	if fs.Changed("png-scale") {
		opts.PNGScale = f.pngScale
	}
	opts.Refresh = f.refresh
	if err := opts.ValidateForRender(); err != nil {
		return opts, err
	}
	return opts, nil
}

// runRender executes the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, f *renderFlags) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()
	prog := newProgress(c.Logger)

	result, err := runner.Execute(ctx, data, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done("Rendered " + input)

	printSuccess("Rendered %s", input)
	printStats(result.Stats.NodeCount, result.Stats.VisibleCount, result.CacheInfo.RenderHit)

	paths := outputPaths(f.output, input, opts.Formats)
	for _, format := range opts.Formats {
		path := paths[format]
		if err := writeFile(path, result.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// outputPaths assigns a file to every format. A single format honours the
// output path as given; several formats share its base name.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, format := range formats {
		paths[format] = base + "." + format
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		if input == "-" {
			return "radialtree"
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
