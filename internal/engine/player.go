package engine

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
	"github.com/roach88/wtas/internal/script"
	"github.com/roach88/wtas/internal/trace"
)

const (
	// DefaultWarmupTicks is how many ticks into a run skipping is held off,
	// so the opening sequence always plays at normal speed.
	DefaultWarmupTicks = 60

	DefaultInboxSize  = 64
	DefaultOutboxSize = 256
)

const sinkTimeout = 5 * time.Second

// Player is the playback state machine.
//
// The host calls Drive (or Tick) once per simulation step, and AwaitFrame
// after each step. Those calls, together with RecordPuzzleClick,
// NotifyPuzzleUnlocked and Markers, form the driver and must all happen on
// one goroutine. The driver exclusively owns script, cursor, trace and
// timers.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Events(): safe from any goroutine; one consumer
//   - everything else: driver goroutine only
type Player struct {
	game    Game
	scripts fs.FS

	inbox  *inbox
	events chan protocol.Event

	warmup uint32
	sink   RunSink
	ids    RunIDGenerator
	now    func() time.Time

	// Driver state. state is only ever Stopped, Playing or Paused; Skipping
	// is derived.
	state       ir.PlaybackState
	startTick   uint32
	currentTick uint32
	processed   bool
	skipTo      uint32
	pauseAt     uint32

	// advanced is set by apply when an AdvanceFrame arrives while already
	// paused. pendingAdvance counts such releases drained by Tick, each owed
	// to a later AwaitFrame.
	advanced       bool
	pendingAdvance int

	scriptName string
	script     *ir.Script
	scriptHash string
	cursor     *Cursor
	trace      *trace.Trace

	runID     string
	startedAt time.Time
	unlocks   []uint32
	dropped   int
}

// Option configures a Player.
type Option func(*Player)

// WithWarmupTicks sets how many ticks into a run skipping is held off.
//
// Default: 60 (DefaultWarmupTicks)
func WithWarmupTicks(n uint32) Option {
	return func(p *Player) { p.warmup = n }
}

// WithInboxSize bounds the ordered command queue.
func WithInboxSize(n int) Option {
	return func(p *Player) { p.inbox = newInbox(n) }
}

// WithOutboxSize bounds the event channel. Events that do not fit are
// dropped; the driver never blocks on output.
func WithOutboxSize(n int) Option {
	return func(p *Player) { p.events = make(chan protocol.Event, max(n, 1)) }
}

// WithRunSink persists every finished run to s.
func WithRunSink(s RunSink) Option {
	return func(p *Player) { p.sink = s }
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(p *Player) { p.ids = g }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// NewPlayer creates a stopped player for game. Script names given to
// PlayFile are resolved inside scripts.
func NewPlayer(game Game, scripts fs.FS, opts ...Option) *Player {
	p := &Player{
		game:    game,
		scripts: scripts,
		inbox:   newInbox(DefaultInboxSize),
		events:  make(chan protocol.Event, DefaultOutboxSize),
		warmup:  DefaultWarmupTicks,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		state:   ir.Stopped,
		trace:   trace.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit hands a controller command to the driver. It implements
// protocol.CommandSink.
func (p *Player) Submit(ctx context.Context, cmd protocol.Command) error {
	return p.inbox.Submit(ctx, cmd)
}

// Events returns the player -> controller event stream.
func (p *Player) Events() <-chan protocol.Event {
	return p.events
}

// Close rejects further commands and releases any AwaitFrame.
func (p *Player) Close() {
	p.inbox.Close()
}

// State is the playback state as reported to controllers: Skipping while
// a playing run is short of the skip target, the stored state otherwise.
func (p *Player) State() ir.PlaybackState {
	if p.state == ir.Playing && p.currentTick < p.skipTo {
		return ir.Skipping
	}
	return p.state
}

// CurrentTick is the last tick processed in the current (or last) run.
func (p *Player) CurrentTick() uint32 { return p.currentTick }

// RunID identifies the current (or last) run.
func (p *Player) RunID() string { return p.runID }

// Skipping reports whether the host should run this step unpaced.
// Advisory only: the player's own cadence is unaffected.
func (p *Player) Skipping() bool {
	return p.state == ir.Playing && p.currentTick < p.skipTo && p.currentTick > p.warmup
}

// Markers returns the trace markers to draw this frame.
func (p *Player) Markers() []trace.Marker {
	return p.trace.Markers()
}

// Drive runs one driver step and injects the resulting input, if any.
// It reports whether input was injected.
func (p *Player) Drive() bool {
	state, ok := p.Tick()
	if ok {
		p.game.InjectInput(state)
	}
	return ok
}

// Tick runs one driver step and returns the controller state for this
// step, or false when the player has no input to give.
func (p *Player) Tick() (ir.ControllerState, bool) {
	if p.drain() && p.advanced {
		p.pendingAdvance++
	}

	live := p.game.CurrentTick()
	pos, ang := p.game.PlayerTransform()
	p.emit(protocol.LiveTransform{Position: pos, Orientation: ang})
	p.emit(protocol.PlaybackStateChanged{State: p.State()})

	if p.state == ir.Stopped {
		return ir.ControllerState{}, false
	}

	if p.cursor.Exhausted() {
		p.stop("finished")
		return ir.ControllerState{}, false
	}

	if live < p.startTick {
		slog.Warn("host tick went backwards, rebasing run", "live", live, "start", p.startTick)
		p.startTick = live - p.currentTick
	}
	current := live - p.startTick
	if p.processed && current == p.currentTick {
		return p.cursor.State(), true
	}

	p.processed = true
	p.currentTick = current
	p.emit(protocol.CurrentTick{Tick: current})

	if p.pauseAt != 0 && current == p.pauseAt {
		p.state = ir.Paused
		slog.Info("paused", "tick", current)
		p.emit(protocol.PlaybackStateChanged{State: p.State()})
	}

	p.trace.Push(pos, ang, p.game.InteractionStatus())

	state, line := p.cursor.Advance(current)
	if line != nil && line.Tool != nil && line.Tool.Kind == ir.ToolSetPos {
		p.game.WriteTransform(line.Tool.Position, line.Tool.Angle)
	}
	return state, true
}

// AwaitFrame blocks while the player is paused, until a command releases
// the frame: AdvanceFrame steps one tick, PlayFile resumes, Stop stops.
// It returns immediately when not paused, and early with ctx.Err() or
// ErrClosed.
func (p *Player) AwaitFrame(ctx context.Context) error {
	for {
		if p.pendingAdvance > 0 {
			p.pendingAdvance--
			return nil
		}
		if p.drain() || p.state != ir.Paused {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.inbox.Done():
			return ErrClosed
		case <-p.inbox.Wait():
		}
	}
}

// RecordPuzzleClick notes a puzzle click in the trace. Ignored while
// stopped.
func (p *Player) RecordPuzzleClick(cam, dir ir.Vec3) {
	if p.state == ir.Stopped {
		return
	}
	p.trace.AddPuzzleClick(p.currentTick, cam, dir)
}

// NotifyPuzzleUnlocked reports a puzzle unlock to the controller. Ignored
// while stopped.
func (p *Player) NotifyPuzzleUnlocked() {
	if p.state == ir.Stopped {
		return
	}
	p.unlocks = append(p.unlocks, p.currentTick)
	slog.Info("puzzle unlocked", "tick", p.currentTick)
	p.emit(protocol.PuzzleUnlocked{Tick: p.currentTick})
}

// drain applies pending commands without blocking. It stops right after an
// AdvanceFrame, leaving later commands for the next frame, and reports
// whether it did so.
func (p *Player) drain() bool {
	l := p.inbox.takeLatest()
	if l.skipTo != nil {
		p.skipTo = *l.skipTo
	}
	if l.pauseAt != nil {
		p.pauseAt = *l.pauseAt
	}
	if l.traceOpts != nil {
		p.trace.Options = *l.traceOpts
	}

	for {
		cmd, ok := p.inbox.TryDequeue()
		if !ok {
			return false
		}
		if p.apply(cmd) {
			return true
		}
	}
}

// apply executes one queued command. It reports whether the command was
// an AdvanceFrame.
func (p *Player) apply(cmd protocol.Command) bool {
	switch c := cmd.(type) {
	case protocol.PlayFile:
		if p.state == ir.Paused {
			p.state = ir.Playing
			p.pendingAdvance = 0
			slog.Info("resumed", "tick", p.currentTick)
			return false
		}
		if err := p.start(c.Name); err != nil {
			slog.Error("script not started", "error", err)
			var pe *PlaybackError
			if errors.As(err, &pe) {
				p.emit(protocol.ParseErrors{Errors: pe.Messages()})
			}
		}
	case protocol.Stop:
		p.stop("stopped")
	case protocol.AdvanceFrame:
		p.advanced = p.state == ir.Paused
		if p.state != ir.Stopped {
			p.state = ir.Paused
		}
		return true
	case protocol.TeleportToTick:
		if p.state != ir.Stopped {
			slog.Debug("teleport ignored while running", "tick", c.Tick)
			return false
		}
		if !p.trace.Teleport(c.Tick, p.game) {
			slog.Debug("teleport outside trace", "tick", c.Tick, "trace_len", p.trace.Len())
		}
	case protocol.SkipTo:
		p.skipTo = c.Tick
	case protocol.PauseAt:
		p.pauseAt = c.Tick
	case protocol.SetTraceOptions:
		p.trace.Options = c.Options
	}
	return false
}

// start stops any current run, loads name and begins a new run.
// On failure the player stays stopped and the previous trace is kept.
func (p *Player) start(name string) error {
	p.stop("replaced")
	p.scriptName = name

	s, errs := script.Load(p.scripts, name)
	if len(errs) > 0 {
		for _, e := range errs {
			slog.Error("script error", "script", name, "error", e.Error())
		}
		return NewLoadError(name, errs)
	}

	switch s.Start.Kind {
	case ir.StartNewGame:
		if err := p.game.RestartNewGame(); err != nil {
			return NewStartError(name, err)
		}
	case ir.StartSave:
		path := filepath.Join(p.game.SaveDir(), filepath.FromSlash(s.Start.Path))
		slog.Info("loading save", "path", path)
		if err := p.game.LoadSave(path); err != nil {
			return NewStartError(name, err)
		}
	}

	hash, err := ir.ScriptHash(s)
	if err != nil {
		slog.Warn("script hash failed", "script", name, "error", err)
	}

	p.script = s
	p.scriptHash = hash
	p.cursor = NewCursor(s.Lines)
	p.startTick = p.game.CurrentTick()
	p.currentTick = 0
	p.processed = false
	p.trace.Clear()
	p.unlocks = nil
	p.runID = p.ids.Generate()
	p.startedAt = p.now()
	p.state = ir.Playing

	slog.Info("started script", "script", name, "run", p.runID, "lines", len(s.Lines), "start", s.Start.Kind.String())
	p.emit(protocol.PlaybackStateChanged{State: p.State()})
	return nil
}

// stop ends the current run, if any, and hands it to the run sink.
func (p *Player) stop(reason string) {
	if p.state == ir.Stopped {
		return
	}
	p.state = ir.Stopped
	p.pendingAdvance = 0
	slog.Info("stopped script", "script", p.scriptName, "ticks", p.currentTick, "reason", reason)
	p.emit(protocol.PlaybackStateChanged{State: ir.Stopped})

	if p.sink != nil {
		run := RunRecord{
			ID:         p.runID,
			Script:     p.scriptName,
			ScriptHash: p.scriptHash,
			Start:      p.script.Start,
			StartedAt:  p.startedAt,
			EndedAt:    p.now(),
			Ticks:      p.currentTick,
			Reason:     reason,
			Trace:      p.trace.Snapshot(),
			Unlocks:    p.unlocks,
		}
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := p.sink.RecordRun(ctx, run); err != nil {
			slog.Warn("run not recorded", "run", p.runID, "error", err)
		}
		cancel()
	}

	p.script = nil
	p.cursor = nil
}

func (p *Player) emit(ev protocol.Event) {
	select {
	case p.events <- ev:
	default:
		p.dropped++
		if p.dropped == 1 || p.dropped%1000 == 0 {
			slog.Debug("event outbox full, dropping", "type", protocol.TypeOf(ev), "dropped", p.dropped)
		}
	}
}
