package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/internal/metrics"
	"github.com/matzehuels/radialtree/internal/server"
	"github.com/matzehuels/radialtree/pkg/pipeline"
)

// serveFlags holds the command-line flags for the serve command.
type serveFlags struct {
	optionFlags
	addr    string
	watch   bool
	ttl     time.Duration
	metrics bool
	rate    float64
	burst   int
}

// serveCommand creates the serve command, which hosts browser sessions.
func (c *CLI) serveCommand() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve [document]",
		Short: "Serve a document as an interactive diagram",
		Long: `Serve a document as an interactive diagram.

Every browser tab opens its own render session on the server. Clicks, hovers
and resizes are posted as events and answered with the transition plan, so
the page only redraws what changed. With --watch the document is reloaded
into every open session when the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f.optionFlags, args[0])
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), args[0], opts, &f)
		},
	}

	fs := cmd.Flags()
	f.register(fs)
	fs.StringVar(&f.addr, "addr", ":8080", "listen address")
	fs.BoolVarP(&f.watch, "watch", "w", false, "reload the document when it changes")
	fs.DurationVar(&f.ttl, "ttl", 30*time.Minute, "idle lifetime of a session")
	fs.BoolVar(&f.metrics, "metrics", false, "expose Prometheus metrics at /metrics")
	fs.Float64Var(&f.rate, "event-rate", server.DefaultEventRate, "events per second accepted per session")
	fs.IntVar(&f.burst, "event-burst", server.DefaultEventBurst, "event burst accepted per session")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input string, opts pipeline.Options, f *serveFlags) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	cfg := server.Config{
		Document:   data,
		Options:    opts,
		TTL:        f.ttl,
		EventRate:  f.rate,
		EventBurst: f.burst,
		Logger:     c.Logger,
	}
	if f.metrics {
		cfg.Metrics = metricsHandler()
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	if f.watch && input == "-" {
		printWarning("Cannot watch stdin, --watch ignored")
	}
	if f.watch && input != "-" {
		go func() {
			if err := srv.Watch(ctx, input); err != nil {
				c.Logger.Error("watch failed", "path", input, "error", err)
			}
		}()
	}

	printSuccess("Serving %s", input)
	printDetail("Address: %s", f.addr)
	return srv.Serve(ctx, f.addr, time.Minute)
}

// metricsHandler installs the Prometheus hooks and returns their endpoint.
func metricsHandler() http.Handler {
	return metrics.Install().Handler()
}
