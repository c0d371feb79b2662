package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/pkg/pipeline"
)

// layoutCommand creates the layout command for computing the initial view.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		f       optionFlags
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [document]",
		Short: "Compute the radial layout of a document",
		Long: `Compute the radial layout of a document.

The output is the settled layout of the initial view as JSON: every visible
node with its angle, radius and depth, and every parent/child link. Results
are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f, args[0])
			if err != nil {
				return err
			}
			opts.Refresh = refresh
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when cached")

	return cmd
}

// runLayout loads the document, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	l, hit, err := runner.LayoutWithCacheInfo(ctx, data, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	c.Logger.Debug("layout computed", "visible", l.Len(), "cached", hit)

	out, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	if output == "" {
		_, err = fmt.Fprintln(c.out, string(out))
		return err
	}
	if err := writeFile(output, out); err != nil {
		return err
	}
	printSuccess("Layout written")
	printStats(0, l.Len(), hit)
	printFile(output)
	return nil
}
