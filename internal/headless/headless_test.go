package headless

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
)

func scripts(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return fsys
}

func newLoop(t *testing.T, files map[string]string, opts ...LoopOption) (*Loop, *engine.Player, *Game) {
	t.Helper()
	game := NewGame(t.TempDir())
	p := engine.NewPlayer(game, scripts(files), engine.WithOutboxSize(4096))
	t.Cleanup(p.Close)
	return NewLoop(p, game, opts...), p, game
}

func TestGame_WalksForward(t *testing.T) {
	g := NewGame("")
	g.InjectInput(ir.ControllerState{Current: ir.HalfControllerState{Forward: true}})
	g.Step()

	pos, _ := g.PlayerTransform()
	assert.InDelta(t, WalkStep, pos.X, 1e-6)
	assert.InDelta(t, 0, pos.Y, 1e-6)
	assert.Equal(t, uint32(1), g.CurrentTick())

	g.Step()
	pos, _ = g.PlayerTransform()
	assert.InDelta(t, WalkStep, pos.X, 1e-6, "input applies to one step only")
}

func TestGame_RunAndStrafe(t *testing.T) {
	g := NewGame("")
	g.InjectInput(ir.ControllerState{Current: ir.HalfControllerState{Right: true, Running: true}})
	g.Step()

	pos, _ := g.PlayerTransform()
	assert.InDelta(t, 0, pos.X, 1e-6)
	assert.InDelta(t, -RunStep, pos.Y, 1e-6)
}

func TestGame_MouseLook(t *testing.T) {
	g := NewGame("")
	g.InjectInput(ir.ControllerState{
		Current:  ir.HalfControllerState{MousePos: ir.MousePos{X: 100, Y: -2000}},
		Previous: ir.HalfControllerState{},
	})
	g.Step()

	_, angle := g.PlayerTransform()
	assert.InDelta(t, -0.2, angle.X, 1e-6)
	assert.InDelta(t, 1.5707964, angle.Y, 1e-6, "pitch clamps at straight up")
}

func TestGame_PanelStates(t *testing.T) {
	g := NewGame("")
	var clicks, unlocks int
	g.SetHooks(Hooks{
		PuzzleClick:    func(cam, dir ir.Vec3) { clicks++ },
		PuzzleUnlocked: func() { unlocks++ },
	})

	press := func(left, right bool) {
		g.InjectInput(ir.ControllerState{Current: ir.HalfControllerState{LeftClick: left, RightClick: right}})
		g.Step()
	}

	press(true, false)
	assert.Equal(t, ir.Walking, g.InteractionStatus(), "left click while walking does nothing")

	press(false, true)
	assert.Equal(t, ir.FocusMode, g.InteractionStatus())

	press(true, false)
	assert.Equal(t, ir.SolvingPanel, g.InteractionStatus())
	assert.Equal(t, 1, clicks)

	press(true, false)
	assert.Equal(t, ir.FocusMode, g.InteractionStatus())
	assert.Equal(t, 1, unlocks)

	press(false, true)
	assert.Equal(t, ir.Walking, g.InteractionStatus())
}

func TestGame_Saves(t *testing.T) {
	dir := t.TempDir()
	g := NewGame(dir)
	g.WriteTransform(ir.Vec3{X: 1, Y: 2, Z: 3}, ir.Vec2{X: 0.5, Y: -0.25})

	path := filepath.Join(dir, "mill.save")
	require.NoError(t, g.WriteSave(path))

	g2 := NewGame(dir)
	require.NoError(t, g2.LoadSave(path))
	pos, angle := g2.PlayerTransform()
	assert.Equal(t, ir.Vec3{X: 1, Y: 2, Z: 3}, pos)
	assert.Equal(t, ir.Vec2{X: 0.5, Y: -0.25}, angle)

	require.NoError(t, g2.RestartNewGame())
	pos, _ = g2.PlayerTransform()
	assert.Equal(t, ir.Vec3{}, pos)

	assert.ErrorIs(t, g2.LoadSave(filepath.Join(dir, "missing.save")), os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("position: [1, 2"), 0o644))
	assert.Error(t, g2.LoadSave(path))
}

func TestLoop_Play(t *testing.T) {
	var steps []uint32
	loop, p, game := newLoop(t, map[string]string{
		"walk.wtas": "version 0\nstart newgame\n1>U\n3>u\n",
	}, WithStepHook(func(tick uint32, _ ir.ControllerState) { steps = append(steps, tick) }))

	require.NoError(t, loop.Play(context.Background(), "walk.wtas", 0))

	assert.Equal(t, []uint32{0, 1, 2, 3}, steps)
	assert.Equal(t, ir.Stopped, p.State())
	pos, _ := game.PlayerTransform()
	assert.InDelta(t, 2*WalkStep, pos.X, 1e-6)
}

func TestLoop_PlayMaxTicks(t *testing.T) {
	loop, p, _ := newLoop(t, map[string]string{
		"long.wtas": "version 0\nstart now\n1>U\n500>u\n",
	})

	require.NoError(t, loop.Play(context.Background(), "long.wtas", 10))
	assert.Equal(t, ir.Stopped, p.State())
	assert.Equal(t, uint32(9), p.CurrentTick())
}

func TestLoop_PlayNotStarted(t *testing.T) {
	loop, _, _ := newLoop(t, map[string]string{
		"bad.wtas": "version 1\nstart now\n",
	})

	err := loop.Play(context.Background(), "bad.wtas", 0)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestLoop_PuzzleHooksReachPlayer(t *testing.T) {
	loop, p, _ := newLoop(t, map[string]string{
		"panel.wtas": "version 0\nstart now\n1>p\n3>P\n5>P\n6>U\n",
	})

	require.NoError(t, loop.Play(context.Background(), "panel.wtas", 0))

	var unlocked []uint32
	for {
		select {
		case ev := <-p.Events():
			if u, ok := ev.(protocol.PuzzleUnlocked); ok {
				unlocked = append(unlocked, u.Tick)
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, []uint32{5}, unlocked)
}

func TestLoop_RunUntilCancelled(t *testing.T) {
	loop, p, game := newLoop(t, map[string]string{
		"walk.wtas": "version 0\nstart now\n1>U\n",
	}, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.NoError(t, p.Submit(ctx, protocol.PlayFile{Name: "walk.wtas"}))
	require.Eventually(t, func() bool { return game.CurrentTick() > 5 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
