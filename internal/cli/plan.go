package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/pkg/interact"
	"github.com/matzehuels/radialtree/pkg/pipeline"
	"github.com/matzehuels/radialtree/pkg/session"
)

// planCommand creates the plan command, which replays an event script.
func (c *CLI) planCommand() *cobra.Command {
	var (
		f         optionFlags
		events    string
		asJSON    bool
		keepGoing bool
	)

	cmd := &cobra.Command{
		Use:   "plan [document]",
		Short: "Replay an event script and print each transition plan",
		Long: `Replay an event script against a document and print the transition plan
of every event.

The script is a JSON array of events:

  [{"type": "click", "node": 2},
   {"type": "hover", "node": 3, "x": 120, "y": 80, "after_ms": 500},
   {"type": "resize", "width": 640, "height": 480}]

"after_ms" advances a virtual clock before the event is delivered, so the
replay is deterministic and does not sleep.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f, args[0])
			if err != nil {
				return err
			}
			return c.runPlan(cmd.Context(), args[0], events, opts, asJSON, keepGoing)
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().StringVarP(&events, "events", "e", "", "event script (JSON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print updates as JSON")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue after an event fails")
	_ = cmd.MarkFlagRequired("events")

	return cmd
}

// replayedStep is one replayed event and its outcome.
type replayedStep struct {
	At     time.Duration  `json:"at"`
	Event  string         `json:"event"`
	Update session.Update `json:"update"`
	Error  string         `json:"error,omitempty"`
}

func (c *CLI) runPlan(ctx context.Context, input, script string, opts pipeline.Options, asJSON, keepGoing bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	file, err := os.Open(script)
	if err != nil {
		return fmt.Errorf("open %s: %w", script, err)
	}
	defer file.Close()
	steps, err := interact.DecodeScript(file)
	if err != nil {
		return fmt.Errorf("%s: %w", script, err)
	}

	raw, err := pipeline.Decode(ctx, data, opts)
	if err != nil {
		return err
	}
	replayed, err := replay(ctx, opts, func(o pipeline.Options) (*session.Session, error) {
		return pipeline.OpenSession(ctx, raw, o)
	}, steps, keepGoing)
	if err != nil && len(replayed) == 0 {
		return err
	}

	if asJSON {
		out, merr := json.MarshalIndent(replayed, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Fprintln(c.out, string(out))
		return err
	}
	for i, r := range replayed {
		fmt.Fprintf(c.out, "%3d  %-8s %-32s %s\n", i+1, r.At, r.Event, describeUpdate(r))
	}
	return err
}

// replay opens a session on a virtual clock and delivers steps in order.
// The first element of the result is the initial render.
func replay(ctx context.Context, opts pipeline.Options, open func(pipeline.Options) (*session.Session, error), steps []interact.Step, keepGoing bool) ([]replayedStep, error) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	opts.Session.Clock = func() time.Time { return now }

	s, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := []replayedStep{{Event: "render", Update: s.Last()}}
	for i, step := range steps {
		now = now.Add(step.After)
		u, err := s.DispatchContext(ctx, step.Event)
		r := replayedStep{At: now.Sub(start), Event: interact.Describe(step.Event), Update: u}
		if err != nil {
			r.Error = err.Error()
			out = append(out, r)
			if !keepGoing {
				return out, fmt.Errorf("event %d (%s): %w", i+1, r.Event, err)
			}
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func describeUpdate(r replayedStep) string {
	u := r.Update
	switch {
	case r.Error != "":
		return styleIconError.Render(iconError) + " " + r.Error
	case u.Skipped:
		return StyleWarning.Render("skipped")
	case u.Ignored:
		return StyleDim.Render("ignored")
	case u.Plan != nil:
		return StyleHighlight.Render(u.Plan.Summary())
	case u.Tooltip.Visible:
		return StyleDim.Render(fmt.Sprintf("tooltip %q", u.Tooltip.Text))
	}
	return StyleDim.Render(fmt.Sprintf("k=%.3g", u.Transform.Scale))
}
