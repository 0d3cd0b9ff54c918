package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/harness"
	"github.com/roach88/wtas/internal/headless"
	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
	"github.com/roach88/wtas/internal/store"
)

// DryrunOptions holds flags for the dryrun command.
type DryrunOptions struct {
	*RootOptions
	MaxTicks uint32
	SaveDir  string
	Record   bool
}

// DryrunTick is one row of dryrun output.
type DryrunTick struct {
	Tick  uint32      `json:"tick"`
	Keys  string      `json:"keys"`
	Mouse ir.MousePos `json:"mouse"`
}

// DryrunResult is the full dryrun output.
type DryrunResult struct {
	Script  string       `json:"script"`
	RunID   string       `json:"run_id"`
	Ticks   []DryrunTick `json:"ticks"`
	Unlocks []uint32     `json:"unlocks"`
	Final   ir.Vec3      `json:"final"`
}

// NewDryrunCommand creates the dryrun command.
func NewDryrunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DryrunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dryrun <script>",
		Short: "Play a script against the headless host",
		Long: `Play a script unpaced against the built-in headless host and print
the controller state derived for every tick.

The headless host only moves a point around; it checks scripts, not
routes. Save starts are resolved against --saves (default: the script's
directory).

Examples:
  wtas dryrun route.wtas
  wtas dryrun route.wtas --ticks 600 --record`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDryrun(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.MaxTicks, "ticks", 0, "stop after this many ticks (0 = until the script ends)")
	cmd.Flags().StringVar(&opts.SaveDir, "saves", "", "directory save starts are resolved against")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the run in the history database")

	return cmd
}

func runDryrun(opts *DryrunOptions, file string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(file); err != nil {
		return WrapExitError(ExitCommandError, "script not found", err)
	}
	dir, name := filepath.Split(file)
	if dir == "" {
		dir = "."
	}
	saveDir := opts.SaveDir
	if saveDir == "" {
		saveDir = dir
	}

	cfg := opts.Config
	playerOpts := []engine.Option{
		engine.WithWarmupTicks(cfg.WarmupTicks),
		engine.WithInboxSize(cfg.InboxSize),
		engine.WithOutboxSize(cfg.OutboxSize),
	}
	if opts.Record {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		playerOpts = append(playerOpts, engine.WithRunSink(st))
	}

	game := headless.NewGame(saveDir)
	player := engine.NewPlayer(game, os.DirFS(dir), playerOpts...)
	defer player.Close()

	result := DryrunResult{Script: name, Ticks: []DryrunTick{}, Unlocks: []uint32{}}
	var parseErrors []string
	drainEvents := func() {
		for {
			select {
			case ev := <-player.Events():
				switch e := ev.(type) {
				case protocol.PuzzleUnlocked:
					result.Unlocks = append(result.Unlocks, e.Tick)
				case protocol.ParseErrors:
					parseErrors = append(parseErrors, e.Errors...)
				}
			default:
				return
			}
		}
	}

	loop := headless.NewLoop(player, game, headless.WithStepHook(func(tick uint32, state ir.ControllerState) {
		drainEvents()
		result.Ticks = append(result.Ticks, DryrunTick{
			Tick:  tick,
			Keys:  harness.KeyString(state.Current),
			Mouse: state.Current.MousePos,
		})
	}))

	err := loop.Play(cmd.Context(), name, opts.MaxTicks)
	drainEvents()
	if err != nil {
		if len(parseErrors) > 0 {
			if ferr := formatter.Error(ErrCodeScript, fmt.Sprintf("%s did not start", file), parseErrors); ferr != nil {
				return ferr
			}
			if !formatter.JSON() {
				for _, e := range parseErrors {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
				}
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%s did not start", file))
		}
		if err == context.Canceled {
			return nil
		}
		return WrapExitError(ExitFailure, "dry run failed", err)
	}

	result.RunID = player.RunID()
	result.Final, _ = game.PlayerTransform()

	if formatter.JSON() {
		return formatter.Success(result, "")
	}

	w := cmd.OutOrStdout()
	p := newPalette(w)
	fmt.Fprintln(w, p.heading.Render(fmt.Sprintf("%6s  %-8s %s", "tick", "keys", "mouse")))
	for _, t := range result.Ticks {
		fmt.Fprintf(w, "%s  %-8s %d,%d\n", p.tick.Render(fmt.Sprintf("%6d", t.Tick)), t.Keys, t.Mouse.X, t.Mouse.Y)
	}
	for _, u := range result.Unlocks {
		fmt.Fprintf(w, "%s puzzle unlocked at tick %d\n", p.ok.Render("★"), u)
	}
	fmt.Fprintf(w, "%d ticks, final position (%.3f, %.3f, %.3f)\n",
		len(result.Ticks), result.Final.X, result.Final.Y, result.Final.Z)
	return nil
}
