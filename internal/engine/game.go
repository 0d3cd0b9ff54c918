package engine

import (
	"context"
	"time"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/trace"
)

// Game is the host simulation the player drives.
//
// All methods are called from the driver goroutine. Values read through it
// are snapshots; making them consistent is the host's business.
type Game interface {
	// CurrentTick is the host's simulation step counter.
	CurrentTick() uint32
	PlayerTransform() (ir.Vec3, ir.Vec2)
	InteractionStatus() ir.InteractionStatus
	InjectInput(ir.ControllerState)
	RestartNewGame() error
	LoadSave(path string) error
	WriteTransform(pos ir.Vec3, angle ir.Vec2)
	// SaveDir is the directory save paths in scripts are relative to.
	SaveDir() string
}

// RunRecord is everything kept about one finished run.
type RunRecord struct {
	ID         string
	Script     string
	ScriptHash string
	Start      ir.StartType
	StartedAt  time.Time
	EndedAt    time.Time
	// Ticks is the last tick the run processed.
	Ticks uint32
	// Reason is why the run ended: "stopped", "finished" or "replaced".
	Reason  string
	Trace   trace.Snapshot
	Unlocks []uint32
}

// RunSink persists finished runs. It is called on the driver goroutine
// once per run, when the run ends.
type RunSink interface {
	RecordRun(ctx context.Context, run RunRecord) error
}
