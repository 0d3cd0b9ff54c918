package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
)

// ControlOptions holds flags for the control command.
type ControlOptions struct {
	*RootOptions
	Addr    string
	Watch   bool
	Timeout time.Duration
}

// NewControlCommand creates the control command.
func NewControlCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ControlOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "control <command> [arg]",
		Short: "Send a command to a running engine",
		Long: `Connect to a running engine as its controller and send one command.

Commands:
  play <script>     start a script, or resume a paused run
  stop              stop the current run
  skip <tick>       fast-forward until tick
  pause <tick>      pause when the run reaches tick (0 disables)
  advance           pause, or step a paused run by one tick
  teleport <tick>   move to where the last run was at tick (stopped only)
  trace <interval>  show the trace for first:N, last:N or between:A:B

Connecting supersedes any other controller. With --watch the connection
stays open and events are printed until interrupted.

Examples:
  wtas control play route.wtas --watch
  wtas control skip 3600
  wtas control trace last:300`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "engine address (default: listen address from config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "keep the connection open and print events")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "connection timeout")

	return cmd
}

// parseControl builds the protocol command for a control invocation.
func parseControl(args []string, traceDefaults ir.TraceDrawOptions) (protocol.Command, error) {
	name := args[0]
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	need := func() error {
		if arg == "" {
			return fmt.Errorf("%s requires an argument", name)
		}
		return nil
	}
	tick := func() (uint32, error) {
		if err := need(); err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid tick %q", name, arg)
		}
		return uint32(n), nil
	}
	noArg := func(cmd protocol.Command) (protocol.Command, error) {
		if arg != "" {
			return nil, fmt.Errorf("%s takes no argument", name)
		}
		return cmd, nil
	}

	switch name {
	case "play":
		if err := need(); err != nil {
			return nil, err
		}
		return protocol.PlayFile{Name: arg}, nil
	case "stop":
		return noArg(protocol.Stop{})
	case "advance":
		return noArg(protocol.AdvanceFrame{})
	case "skip":
		t, err := tick()
		return protocol.SkipTo{Tick: t}, err
	case "pause":
		t, err := tick()
		return protocol.PauseAt{Tick: t}, err
	case "teleport":
		t, err := tick()
		return protocol.TeleportToTick{Tick: t}, err
	case "trace":
		if err := need(); err != nil {
			return nil, err
		}
		interval, err := ir.ParseInterval(arg)
		if err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		opts := traceDefaults
		opts.Interval = interval
		return protocol.SetTraceOptions{Options: opts}, nil
	default:
		return nil, fmt.Errorf("unknown control command %q", name)
	}
}

func runControl(opts *ControlOptions, args []string, cmd *cobra.Command) error {
	command, err := parseControl(args, opts.Config.Trace)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid command", err)
	}

	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.Listen
	}

	ctx := cmd.Context()
	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	client, err := protocol.Dial(dialCtx, addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "no engine listening", err)
	}
	defer client.Close()

	if err := client.Send(command); err != nil {
		return WrapExitError(ExitFailure, "failed to send command", err)
	}
	newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).
		VerboseLog("sent %s to %s", protocol.TypeOf(command), addr)

	if !opts.Watch {
		return nil
	}
	return watchEvents(ctx, client, cmd.OutOrStdout(), opts.Format == "json", opts.Verbose)
}

// watchEvents prints events until ctx is done or the engine hangs up.
// The engine reports its transform, tick and state every frame; unless
// verbose, only state changes and one-off events are shown.
func watchEvents(ctx context.Context, client *protocol.Client, w io.Writer, asJSON, verbose bool) error {
	enc := json.NewEncoder(w)
	p := newPalette(w)
	var (
		lastTick  uint32
		lastState ir.PlaybackState
		seenState bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-client.Events():
			if !ok {
				if err := client.Err(); err != nil && err != io.EOF {
					return WrapExitError(ExitFailure, "connection lost", err)
				}
				return nil
			}
			switch e := ev.(type) {
			case protocol.CurrentTick:
				lastTick = e.Tick
				if !verbose {
					continue
				}
			case protocol.LiveTransform:
				if !verbose {
					continue
				}
			case protocol.PlaybackStateChanged:
				if seenState && e.State == lastState && !verbose {
					continue
				}
				lastState, seenState = e.State, true
			}
			if asJSON {
				env, err := protocol.EncodeEvent(ev)
				if err != nil {
					return err
				}
				if err := enc.Encode(env); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(w, describeEvent(p, ev, lastTick))
		}
	}
}

func describeEvent(p palette, ev protocol.Event, tick uint32) string {
	at := p.tick.Render(fmt.Sprintf("[%6d]", tick))
	switch e := ev.(type) {
	case protocol.PlaybackStateChanged:
		return fmt.Sprintf("%s %s", at, p.state(e.State).Render(e.State.String()))
	case protocol.CurrentTick:
		return fmt.Sprintf("%s tick", at)
	case protocol.ParseErrors:
		s := fmt.Sprintf("%s %s", at, p.fail.Render("script errors:"))
		for _, msg := range e.Errors {
			s += "\n  " + msg
		}
		return s
	case protocol.LiveTransform:
		return fmt.Sprintf("%s %s", at, p.dim.Render(fmt.Sprintf("at (%.3f, %.3f, %.3f) facing (%.3f, %.3f)",
			e.Position.X, e.Position.Y, e.Position.Z, e.Orientation.X, e.Orientation.Y)))
	case protocol.PuzzleUnlocked:
		return fmt.Sprintf("%s %s at tick %d", at, p.ok.Render("puzzle unlocked"), e.Tick)
	default:
		return fmt.Sprintf("%s %s", at, protocol.TypeOf(ev))
	}
}
