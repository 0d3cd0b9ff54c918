package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/wtas/internal/ir"
)

func TestDeterministicClock_Steps(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, 2, clock.Reads())

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministicClock_Deterministic(t *testing.T) {
	clock1 := NewDeterministicClock()
	clock2 := NewDeterministicClock()

	for i := 0; i < 100; i++ {
		assert.Equal(t, clock1.Now(), clock2.Now())
	}
}

func TestFixedRunIDGenerator(t *testing.T) {
	assert.Equal(t, "run-7", NewFixedRunIDGenerator("run-7").Generate())
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())

	gen := NewFixedRunIDGenerator("shared")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestFakeGame_RecordsCalls(t *testing.T) {
	g := NewFakeGame("/saves")
	g.Step(3)

	state := ir.ControllerState{Current: ir.HalfControllerState{Forward: true}}
	g.InjectInput(state)
	g.WriteTransform(ir.Vec3{X: 1}, ir.Vec2{Y: 2})

	assert.Equal(t, []Injection{{Tick: 3, State: state}}, g.Injected())
	pos, ang := g.PlayerTransform()
	assert.Equal(t, ir.Vec3{X: 1}, pos)
	assert.Equal(t, ir.Vec2{Y: 2}, ang)
	assert.Len(t, g.Writes(), 1)
	assert.Equal(t, "/saves", g.SaveDir())
}

func TestFakeGame_Failures(t *testing.T) {
	g := NewFakeGame("")
	boom := errors.New("boom")

	assert.NoError(t, g.RestartNewGame())
	g.FailRestart(boom)
	assert.ErrorIs(t, g.RestartNewGame(), boom)
	assert.Equal(t, 1, g.Restarts())

	g.FailLoad(boom)
	assert.ErrorIs(t, g.LoadSave("x"), boom)
	assert.Empty(t, g.Saves())
}
