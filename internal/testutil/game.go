// Package testutil provides deterministic stand-ins for the game, the wall
// clock and run ID generation.
package testutil

import (
	"sync"

	"github.com/roach88/wtas/internal/ir"
)

// Injection is one controller state the player handed to the game.
type Injection struct {
	Tick  uint32
	State ir.ControllerState
}

// Transform is one write through WriteTransform.
type Transform struct {
	Position ir.Vec3
	Angle    ir.Vec2
}

// FakeGame is a scriptable game for tests. Nothing moves on its own: the
// tick counter advances only through Step, and the transform changes only
// when a test sets it or the player writes it.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeGame struct {
	mu sync.Mutex

	tick     uint32
	position ir.Vec3
	angle    ir.Vec2
	status   ir.InteractionStatus
	saveDir  string

	injected   []Injection
	writes     []Transform
	restarts   int
	saves      []string
	restartErr error
	loadErr    error
}

// NewFakeGame creates a game at tick 0 with the given save directory.
func NewFakeGame(saveDir string) *FakeGame {
	return &FakeGame{saveDir: saveDir}
}

// Step advances the tick counter by n.
func (g *FakeGame) Step(n uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick += n
}

// SetTick sets the tick counter.
func (g *FakeGame) SetTick(t uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick = t
}

// SetTransform sets what PlayerTransform reports.
func (g *FakeGame) SetTransform(pos ir.Vec3, angle ir.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position, g.angle = pos, angle
}

// SetInteraction sets what InteractionStatus reports.
func (g *FakeGame) SetInteraction(s ir.InteractionStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = s
}

// FailRestart makes RestartNewGame return err.
func (g *FakeGame) FailRestart(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restartErr = err
}

// FailLoad makes LoadSave return err.
func (g *FakeGame) FailLoad(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loadErr = err
}

// CurrentTick implements engine.Game.
func (g *FakeGame) CurrentTick() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// PlayerTransform implements engine.Game.
func (g *FakeGame) PlayerTransform() (ir.Vec3, ir.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position, g.angle
}

// InteractionStatus implements engine.Game.
func (g *FakeGame) InteractionStatus() ir.InteractionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// InjectInput implements engine.Game.
func (g *FakeGame) InjectInput(s ir.ControllerState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.injected = append(g.injected, Injection{Tick: g.tick, State: s})
}

// RestartNewGame implements engine.Game.
func (g *FakeGame) RestartNewGame() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.restartErr != nil {
		return g.restartErr
	}
	g.restarts++
	return nil
}

// LoadSave implements engine.Game.
func (g *FakeGame) LoadSave(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return g.loadErr
	}
	g.saves = append(g.saves, path)
	return nil
}

// WriteTransform implements engine.Game. The written transform becomes the
// reported one.
func (g *FakeGame) WriteTransform(pos ir.Vec3, angle ir.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position, g.angle = pos, angle
	g.writes = append(g.writes, Transform{Position: pos, Angle: angle})
}

// SaveDir implements engine.Game.
func (g *FakeGame) SaveDir() string {
	return g.saveDir
}

// Injected returns every injected state in order.
func (g *FakeGame) Injected() []Injection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Injection(nil), g.injected...)
}

// Writes returns every WriteTransform call in order.
func (g *FakeGame) Writes() []Transform {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Transform(nil), g.writes...)
}

// Restarts is how many times RestartNewGame succeeded.
func (g *FakeGame) Restarts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restarts
}

// Saves lists the paths LoadSave succeeded with.
func (g *FakeGame) Saves() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.saves...)
}
