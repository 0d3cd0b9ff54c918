package headless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
)

// StepFunc observes the input derived for one tick.
type StepFunc func(tick uint32, state ir.ControllerState)

// Loop drives a Player against a Game, one Game step per Player step.
// It is the only goroutine that touches the Player's playback state.
type Loop struct {
	player   *engine.Player
	game     *Game
	interval time.Duration
	onStep   StepFunc
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithInterval paces the loop at one step per interval. Zero runs unpaced.
// Skipping always runs unpaced.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.interval = d }
}

// WithStepHook calls fn for every tick that produced input.
func WithStepHook(fn StepFunc) LoopOption {
	return func(l *Loop) { l.onStep = fn }
}

// NewLoop connects the game's puzzle hooks to the player and returns a
// loop ready to Run.
func NewLoop(p *engine.Player, g *Game, opts ...LoopOption) *Loop {
	l := &Loop{player: p, game: g}
	for _, opt := range opts {
		opt(l)
	}
	g.SetHooks(Hooks{
		PuzzleClick:    p.RecordPuzzleClick,
		PuzzleUnlocked: p.NotifyPuzzleUnlocked,
	})
	return l
}

// Run steps until ctx is cancelled. Returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("headless host starting", "interval", l.interval)

	var tick <-chan time.Time
	if l.interval > 0 {
		t := time.NewTicker(l.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if err := l.step(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("headless host stopping: context cancelled")
				return nil
			}
			return err
		}

		if tick == nil || l.player.Skipping() {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("headless host stopping: context cancelled")
			return nil
		case <-tick:
		}
	}
}

// step runs one Player step, waits out a pause, then advances the Game.
func (l *Loop) step(ctx context.Context) error {
	state, ok := l.player.Tick()
	if ok {
		l.game.InjectInput(state)
		if l.onStep != nil {
			l.onStep(l.player.CurrentTick(), state)
		}
	}
	if err := l.player.AwaitFrame(ctx); err != nil {
		return err
	}
	l.game.Step()
	return nil
}

// ErrNotStarted is returned by Play when the script could not be started.
var ErrNotStarted = errors.New("script did not start")

// Play runs one script unpaced until it finishes, is stopped, or maxTicks
// ticks have been processed (zero means no limit).
func (l *Loop) Play(ctx context.Context, name string, maxTicks uint32) error {
	if err := l.player.Submit(ctx, protocol.PlayFile{Name: name}); err != nil {
		return fmt.Errorf("play %s: %w", name, err)
	}

	started := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.step(ctx); err != nil {
			return err
		}

		playing := l.player.State() != ir.Stopped
		switch {
		case playing:
			started = true
		case started:
			return nil
		default:
			return fmt.Errorf("play %s: %w", name, ErrNotStarted)
		}

		if maxTicks > 0 && l.player.CurrentTick()+1 >= maxTicks {
			if err := l.player.Submit(ctx, protocol.Stop{}); err != nil {
				return err
			}
			return l.step(ctx)
		}
	}
}
