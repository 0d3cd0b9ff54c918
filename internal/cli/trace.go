package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Interval string
}

// TraceSample is one recorded tick.
type TraceSample struct {
	Tick        uint32               `json:"tick"`
	Position    ir.Vec3              `json:"position"`
	Angle       ir.Vec2              `json:"angle"`
	Interaction ir.InteractionStatus `json:"interaction"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run     RunSummary       `json:"run"`
	Samples []TraceSample    `json:"samples"`
	Clicks  []ir.PuzzleClick `json:"clicks"`
	Unlocks []uint32         `json:"unlocks"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the position trace of a recorded run",
		Long: `Show where the player was on each tick of a recorded run, along with
puzzle clicks and unlocks.

The interval selects ticks the same way the in-game overlay does:
first:N, last:N or between:A:B. It defaults to the configured interval.

Examples:
  wtas trace --run 0192f3c4-...
  wtas trace --run 0192f3c4-... --interval between:100:200 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Interval, "interval", "", "ticks to show (default from config)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	interval := opts.Config.Trace.Interval
	if opts.Interval != "" {
		parsed, err := ir.ParseInterval(opts.Interval)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid interval", err)
		}
		interval = parsed
	}

	st, err := openHistory(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("no run %s", opts.RunID), nil); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "trace failed", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	offset, ticks, err := st.ReadTrace(ctx, run.ID, interval)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	clicks, err := st.ReadClicks(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read clicks", err)
	}
	unlocks, err := st.ReadUnlocks(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read unlocks", err)
	}

	result := TraceResult{
		Run:     summarize(run),
		Samples: make([]TraceSample, len(ticks)),
		Clicks:  []ir.PuzzleClick{},
		Unlocks: []uint32{},
	}
	for i, t := range ticks {
		result.Samples[i] = TraceSample{
			Tick:        uint32(offset + i),
			Position:    t.Position,
			Angle:       t.Angle,
			Interaction: t.Interaction,
		}
	}
	// Clicks and unlocks are limited to the shown window.
	if len(result.Samples) > 0 {
		lo, hi := result.Samples[0].Tick, result.Samples[len(result.Samples)-1].Tick
		for _, c := range clicks {
			if c.Tick >= lo && c.Tick <= hi {
				result.Clicks = append(result.Clicks, c)
			}
		}
		for _, u := range unlocks {
			if u >= lo && u <= hi {
				result.Unlocks = append(result.Unlocks, u)
			}
		}
	}

	if formatter.JSON() {
		return formatter.Success(result, "")
	}
	return outputTraceText(cmd, result, interval)
}

func outputTraceText(cmd *cobra.Command, result TraceResult, interval ir.TraceInterval) error {
	w := cmd.OutOrStdout()
	r := result.Run
	fmt.Fprintf(w, "Run %s: %s (start %s), %d ticks, %s\n", r.ID, r.Script, r.Start, r.Ticks, r.Reason)
	fmt.Fprintf(w, "Showing %d of %d samples (%s)\n\n", len(result.Samples), r.Samples, interval)

	if len(result.Samples) == 0 {
		return nil
	}

	clicks := make(map[uint32]bool, len(result.Clicks))
	for _, c := range result.Clicks {
		clicks[c.Tick] = true
	}
	unlocks := make(map[uint32]bool, len(result.Unlocks))
	for _, u := range result.Unlocks {
		unlocks[u] = true
	}

	p := newPalette(w)
	fmt.Fprintln(w, p.heading.Render(fmt.Sprintf("%6s  %28s  %17s  %s", "tick", "position", "angle", "interaction")))
	for _, s := range result.Samples {
		line := fmt.Sprintf("%s  %8.3f %8.3f %8.3f  %8.3f %8.3f  %s",
			p.tick.Render(fmt.Sprintf("%6d", s.Tick)),
			s.Position.X, s.Position.Y, s.Position.Z, s.Angle.X, s.Angle.Y, s.Interaction)
		if clicks[s.Tick] {
			line += " " + p.ok.Render("click")
		}
		if unlocks[s.Tick] {
			line += " " + p.ok.Render("unlock")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
