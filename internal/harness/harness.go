package harness

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"testing/fstest"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/headless"
	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
	"github.com/roach88/wtas/internal/store"
	"github.com/roach88/wtas/internal/testutil"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	player *engine.Player
	game   *headless.Game
	store  *store.Store
	result *Result

	// last reported playback state, for collapsing per-frame reports
	last ir.PlaybackState
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh headless host and an in-memory run
// store. Run IDs and wall-clock times are deterministic.
//
// Execution flow per host step:
// 1. Submit the commands scheduled for this step
// 2. If the frame is held by a pause, poll for release; stay held otherwise
// 3. Step the player and inject its input
// 4. Collect events; advance the host unless the player is now paused
func Run(scenario *Scenario) (*Result, error) {
	fsys, err := scenario.scriptFS()
	if err != nil {
		return nil, err
	}

	saveDir, err := os.MkdirTemp("", "wtas-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create save dir: %w", err)
	}
	defer os.RemoveAll(saveDir)
	if err := writeSaves(saveDir, scenario.Saves); err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids, err := scenario.runIDs()
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithRunSink(st),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(ids...)),
		engine.WithClock(testutil.NewDeterministicClock().Now),
		engine.WithOutboxSize(1024),
	}
	if scenario.WarmupTicks != nil {
		opts = append(opts, engine.WithWarmupTicks(*scenario.WarmupTicks))
	}

	game := headless.NewGame(saveDir)
	player := engine.NewPlayer(game, fsys, opts...)
	defer player.Close()
	game.SetHooks(headless.Hooks{
		PuzzleClick:    player.RecordPuzzleClick,
		PuzzleUnlocked: player.NotifyPuzzleUnlocked,
	})

	h := &Harness{
		player: player,
		game:   game,
		store:  st,
		result: NewResult(),
	}

	ctx := context.Background()
	if err := h.execute(ctx, scenario); err != nil {
		return nil, err
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	slices.Reverse(runs)
	h.result.Runs = runs
	h.result.State = player.State()
	h.result.Final, _ = game.PlayerTransform()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) error {
	// AwaitFrame with a cancelled context polls instead of blocking.
	poll, cancel := context.WithCancel(ctx)
	cancel()

	held := false
	for step := uint32(0); step < scenario.Steps; step++ {
		for _, c := range scenario.Commands {
			if c.At != step {
				continue
			}
			cmd, err := c.Command()
			if err != nil {
				return fmt.Errorf("step %d: %w", step, err)
			}
			if err := h.player.Submit(ctx, cmd); err != nil {
				return fmt.Errorf("step %d: submit %s: %w", step, c.Type, err)
			}
		}

		if held {
			if h.player.AwaitFrame(poll) != nil {
				h.result.Frames = append(h.result.Frames, Frame{
					Step:        step,
					Held:        true,
					Tick:        h.player.CurrentTick(),
					State:       h.player.State(),
					Interaction: h.game.InteractionStatus(),
				})
				h.collect()
				continue
			}
			h.game.Step()
			held = false
		}

		state, ok := h.player.Tick()
		f := Frame{
			Step:        step,
			Tick:        h.player.CurrentTick(),
			State:       h.player.State(),
			Interaction: h.game.InteractionStatus(),
		}
		if ok {
			h.game.InjectInput(state)
			f.Input = &state
		}
		h.result.Frames = append(h.result.Frames, f)
		h.collect()

		if h.player.AwaitFrame(poll) != nil {
			held = true
			continue
		}
		h.game.Step()
		h.collect()
	}
	return nil
}

// collect drains pending player events into the result.
func (h *Harness) collect() {
	for {
		select {
		case ev := <-h.player.Events():
			h.record(ev)
		default:
			return
		}
	}
}

func (h *Harness) record(ev protocol.Event) {
	r := h.result
	switch e := ev.(type) {
	case protocol.LiveTransform, protocol.CurrentTick:
		// reported every frame; frames already carry this
	case protocol.PlaybackStateChanged:
		if e.State != h.last {
			h.last = e.State
			r.Events = append(r.Events, fmt.Sprintf("PlaybackStateChanged(%s)", e.State))
		}
	case protocol.ParseErrors:
		r.Events = append(r.Events, "ParseErrors")
		r.ParseErrors = append(r.ParseErrors, e.Errors...)
	case protocol.PuzzleUnlocked:
		r.Events = append(r.Events, "PuzzleUnlocked")
		r.Unlocks = append(r.Unlocks, e.Tick)
	}
}

// scriptFS builds the script namespace from inline sources and files.
func (s *Scenario) scriptFS() (fstest.MapFS, error) {
	fsys := fstest.MapFS{}
	for name, src := range s.Scripts {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	for _, p := range s.ScriptFiles {
		if !filepath.IsAbs(p) && s.dir != "" {
			p = filepath.Join(s.dir, p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read script file: %w", err)
		}
		fsys[filepath.Base(p)] = &fstest.MapFile{Data: data}
	}
	return fsys, nil
}

// runIDs returns the IDs handed to runs, one per PlayFile at most.
func (s *Scenario) runIDs() ([]string, error) {
	plays := 0
	for _, c := range s.Commands {
		if c.Type == "PlayFile" {
			plays++
		}
	}
	if len(s.RunIDs) > 0 {
		if len(s.RunIDs) < plays {
			return nil, fmt.Errorf("run_ids: %d ids for %d PlayFile commands", len(s.RunIDs), plays)
		}
		return s.RunIDs, nil
	}
	ids := make([]string, max(plays, 1))
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}
	return ids, nil
}

func writeSaves(dir string, saves map[string]headless.Save) error {
	for name, save := range saves {
		p := filepath.Join(dir, filepath.FromSlash(path.Clean(name)))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("write save %s: %w", name, err)
		}
		data, err := yaml.Marshal(save)
		if err != nil {
			return fmt.Errorf("write save %s: %w", name, err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return fmt.Errorf("write save %s: %w", name, err)
		}
	}
	return nil
}
