package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Limit    int
	Delete   string
}

// RunSummary is one row of run history output.
type RunSummary struct {
	ID         string    `json:"id"`
	Script     string    `json:"script"`
	ScriptHash string    `json:"script_hash"`
	Start      string    `json:"start"`
	StartPath  string    `json:"start_path,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	Ticks      uint32    `json:"ticks"`
	Reason     string    `json:"reason"`
	Samples    int       `json:"samples"`
}

func summarize(r store.Run) RunSummary {
	return RunSummary{
		ID:         r.ID,
		Script:     r.Script,
		ScriptHash: r.ScriptHash,
		Start:      r.Start.Kind.String(),
		StartPath:  r.Start.Path,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		Ticks:      r.Ticks,
		Reason:     r.Reason,
		Samples:    r.TraceLen,
	}
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded in the history database, newest first.

Examples:
  wtas runs
  wtas runs --limit 5 --format json
  wtas runs --delete 0192f3c4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the run with this ID")

	return cmd
}

// openHistory opens the database named by flag, or the configured one.
func openHistory(opts *RootOptions, flag string) (*store.Store, error) {
	path := flag
	if path == "" {
		path = opts.Config.Database
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	st, err := openHistory(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Delete != "" {
		if err := st.DeleteRun(ctx, opts.Delete); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				if ferr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("no run %s", opts.Delete), nil); ferr != nil {
					return ferr
				}
				return WrapExitError(ExitFailure, "delete failed", err)
			}
			return WrapExitError(ExitCommandError, "delete failed", err)
		}
		p := newPalette(cmd.OutOrStdout())
		return formatter.Success(map[string]string{"deleted": opts.Delete},
			fmt.Sprintf("%s deleted %s", p.ok.Render("✓"), opts.Delete))
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarize(r)
	}
	if formatter.JSON() {
		return formatter.Success(summaries, "")
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	p := newPalette(w)
	fmt.Fprintln(w, p.heading.Render(fmt.Sprintf("%-36s  %-20s  %-8s  %8s  %-9s  %s", "run", "script", "start", "ticks", "reason", "started")))
	for _, s := range summaries {
		reason := p.dim.Render(fmt.Sprintf("%-9s", s.Reason))
		if s.Reason == "finished" {
			reason = p.ok.Render(fmt.Sprintf("%-9s", s.Reason))
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-8s  %8d  %s  %s\n",
			s.ID, s.Script, s.Start, s.Ticks, reason, s.StartedAt.Local().Format(time.DateTime))
	}
	return nil
}
