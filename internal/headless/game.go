// Package headless provides a stand-in host for the playback engine.
//
// Game is a small kinematic simulation: the player walks on the XY plane,
// looks around with the mouse, and can focus on and solve puzzle panels
// with the mouse buttons. It exists so the engine, protocol server and
// controllers can be exercised without the real game.
package headless

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wtas/internal/engine"
	"github.com/roach88/wtas/internal/ir"
)

// Movement per tick, in world units.
const (
	WalkStep = 0.05
	RunStep  = 0.1
)

// MouseSensitivity is radians of view rotation per mouse unit.
const MouseSensitivity = 0.002

// Hooks are called from Step when the simulated player interacts with a
// puzzle panel.
type Hooks struct {
	PuzzleClick    func(cam, dir ir.Vec3)
	PuzzleUnlocked func()
}

// Save is the on-disk form of a save file.
type Save struct {
	Position ir.Vec3 `yaml:"position"`
	Angle    ir.Vec2 `yaml:"angle"`
}

var _ engine.Game = (*Game)(nil)

// Game is the stand-in host simulation.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Hooks run with the mutex released.
type Game struct {
	mu          sync.Mutex
	tick        uint32
	pos         ir.Vec3
	angle       ir.Vec2
	interaction ir.InteractionStatus
	input       ir.ControllerState
	pending     bool
	saveDir     string
	hooks       Hooks
}

// NewGame creates a game that resolves save paths under saveDir.
func NewGame(saveDir string) *Game {
	return &Game{saveDir: saveDir}
}

// SetHooks replaces the puzzle hooks.
func (g *Game) SetHooks(h Hooks) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = h
}

// Step advances the simulation by one tick, applying the last injected
// input. Without input the player stands still.
func (g *Game) Step() {
	g.mu.Lock()
	g.tick++
	if !g.pending {
		g.mu.Unlock()
		return
	}
	g.pending = false
	in := g.input

	g.look(in)
	if g.interaction == ir.Walking {
		g.move(in.Current)
	}
	click, unlock := g.interact(in)
	cam, dir := g.pos, g.facing()
	hooks := g.hooks
	g.mu.Unlock()

	if click && hooks.PuzzleClick != nil {
		hooks.PuzzleClick(cam, dir)
	}
	if unlock && hooks.PuzzleUnlocked != nil {
		hooks.PuzzleUnlocked()
	}
}

func (g *Game) look(in ir.ControllerState) {
	dx := float64(in.Current.MousePos.X - in.Previous.MousePos.X)
	dy := float64(in.Current.MousePos.Y - in.Previous.MousePos.Y)
	if dx == 0 && dy == 0 {
		return
	}
	g.angle.X -= float32(dx * MouseSensitivity)
	pitch := float64(g.angle.Y) - dy*MouseSensitivity
	g.angle.Y = float32(math.Max(-math.Pi/2, math.Min(math.Pi/2, pitch)))
}

func (g *Game) move(h ir.HalfControllerState) {
	var fwd, side float32
	if h.Forward {
		fwd++
	}
	if h.Backward {
		fwd--
	}
	if h.Right {
		side++
	}
	if h.Left {
		side--
	}
	if fwd == 0 && side == 0 {
		return
	}

	step := float32(WalkStep)
	if h.Running {
		step = RunStep
	}
	sin, cos := math.Sincos(float64(g.angle.X))
	forward := ir.Vec3{X: float32(cos), Y: float32(sin)}
	right := ir.Vec3{X: float32(sin), Y: float32(-cos)}
	g.pos = g.pos.Add(forward.Scale(fwd * step)).Add(right.Scale(side * step))
}

// interact runs the panel state machine:
// walking -(right)-> focus -(left)-> solving -(left)-> focus (unlocked),
// and right click backs out one level.
func (g *Game) interact(in ir.ControllerState) (click, unlock bool) {
	left := in.Edge(ir.ButtonLeftClick) == ir.EdgePressed
	right := in.Edge(ir.ButtonRightClick) == ir.EdgePressed

	switch g.interaction {
	case ir.Walking:
		if right {
			g.interaction = ir.FocusMode
		}
	case ir.FocusMode:
		switch {
		case left:
			g.interaction = ir.SolvingPanel
			click = true
		case right:
			g.interaction = ir.Walking
		}
	case ir.SolvingPanel:
		switch {
		case left:
			g.interaction = ir.FocusMode
			unlock = true
		case right:
			g.interaction = ir.FocusMode
		}
	}
	return click, unlock
}

func (g *Game) facing() ir.Vec3 {
	sy, cy := math.Sincos(float64(g.angle.X))
	sp, cp := math.Sincos(float64(g.angle.Y))
	return ir.Vec3{X: float32(cy * cp), Y: float32(sy * cp), Z: float32(sp)}
}

func (g *Game) CurrentTick() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

func (g *Game) PlayerTransform() (ir.Vec3, ir.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pos, g.angle
}

func (g *Game) InteractionStatus() ir.InteractionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interaction
}

// InjectInput queues the input for the next Step.
func (g *Game) InjectInput(s ir.ControllerState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.input = s
	g.pending = true
}

// RestartNewGame puts the player back at the origin.
func (g *Game) RestartNewGame() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(Save{})
	return nil
}

// LoadSave restores the player from a YAML save file.
func (g *Game) LoadSave(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load save: %w", err)
	}
	var s Save
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("load save %s: %w", filepath.Base(path), err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(s)
	return nil
}

func (g *Game) reset(s Save) {
	g.pos = s.Position
	g.angle = s.Angle
	g.interaction = ir.Walking
	g.input = ir.ControllerState{}
	g.pending = false
}

// WriteTransform teleports the player.
func (g *Game) WriteTransform(pos ir.Vec3, angle ir.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pos = pos
	g.angle = angle
}

func (g *Game) SaveDir() string { return g.saveDir }

// WriteSave stores the current player transform as a save file.
func (g *Game) WriteSave(path string) error {
	g.mu.Lock()
	s := Save{Position: g.pos, Angle: g.angle}
	g.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}
