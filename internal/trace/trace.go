// Package trace records the player's transform once per tick of a run and
// answers windowed display queries over that history.
//
// A Trace has a single writer (the playback driver). It is not safe for
// concurrent use.
package trace

import (
	"sort"

	"github.com/roach88/wtas/internal/ir"
)

// TransformWriter writes a recorded transform back into the live game.
type TransformWriter interface {
	WriteTransform(pos ir.Vec3, angle ir.Vec2)
}

// Trace is the append-only per-tick log of one run plus its sparse
// puzzle-click log. Index i holds the sample taken i ticks after run start.
type Trace struct {
	// Options only affects what is displayed, never what is recorded.
	Options ir.TraceDrawOptions

	ticks  []ir.TraceTick
	clicks map[uint32]ir.PuzzleClick
}

// New returns an empty trace using the default draw options.
func New() *Trace {
	return &Trace{
		Options: ir.DefaultTraceDrawOptions(),
		clicks:  make(map[uint32]ir.PuzzleClick),
	}
}

// Clear drops every recorded tick and click. Options are kept.
func (t *Trace) Clear() {
	t.ticks = t.ticks[:0]
	clear(t.clicks)
}

// Push appends the sample for the next tick.
func (t *Trace) Push(pos ir.Vec3, angle ir.Vec2, interaction ir.InteractionStatus) {
	t.ticks = append(t.ticks, ir.TraceTick{Position: pos, Angle: angle, Interaction: interaction})
}

// AddPuzzleClick records a click at tick. A later click on the same tick
// replaces the earlier one.
func (t *Trace) AddPuzzleClick(tick uint32, cam, dir ir.Vec3) {
	t.clicks[tick] = ir.PuzzleClick{Tick: tick, CameraPosition: cam, Direction: dir}
}

// Len is the number of recorded ticks.
func (t *Trace) Len() int { return len(t.ticks) }

// At returns the sample recorded at tick.
func (t *Trace) At(tick uint32) (ir.TraceTick, bool) {
	if int64(tick) >= int64(len(t.ticks)) {
		return ir.TraceTick{}, false
	}
	return t.ticks[tick], true
}

// Window resolves the display interval of opts against a trace of the given
// length. The result is the half-open range [lo, hi) with both ends clamped
// to length; lo == hi means nothing is shown. A reversed Between(a, b)
// collapses to [a, a).
func Window(opts ir.TraceDrawOptions, length int) (lo, hi int) {
	iv := opts.Interval
	switch iv.Kind {
	case ir.IntervalFirst:
		lo, hi = 0, int(iv.A)
	case ir.IntervalLast:
		lo, hi = max(0, length-int(iv.A)), length
	case ir.IntervalBetween:
		lo, hi = int(iv.A), max(int(iv.B), int(iv.A))
	default:
		return 0, 0
	}

	lo, hi = min(lo, length), min(hi, length)
	return lo, max(lo, hi)
}

// Visible returns the recorded ticks inside the current display window.
// The slice aliases the trace and must not be modified.
func (t *Trace) Visible() []ir.TraceTick {
	lo, hi := Window(t.Options, len(t.ticks))
	return t.ticks[lo:hi]
}

// VisibleClicks returns the puzzle clicks whose tick falls inside the
// current display window, ordered by tick.
func (t *Trace) VisibleClicks() []ir.PuzzleClick {
	lo, hi := Window(t.Options, len(t.ticks))
	var out []ir.PuzzleClick
	for tick, c := range t.clicks {
		if int64(tick) >= int64(lo) && int64(tick) < int64(hi) {
			out = append(out, c)
		}
	}
	sortClicks(out)
	return out
}

// Teleport writes the transform recorded at tick back through w.
// It reports false, and does nothing, if tick was never recorded.
func (t *Trace) Teleport(tick uint32, w TransformWriter) bool {
	sample, ok := t.At(tick)
	if !ok {
		return false
	}
	w.WriteTransform(sample.Position, sample.Angle)
	return true
}

// Snapshot is a copy of a trace's recorded data.
type Snapshot struct {
	Ticks  []ir.TraceTick
	Clicks []ir.PuzzleClick
}

// Snapshot copies the recorded ticks and clicks (ordered by tick).
func (t *Trace) Snapshot() Snapshot {
	s := Snapshot{
		Ticks:  append([]ir.TraceTick(nil), t.ticks...),
		Clicks: make([]ir.PuzzleClick, 0, len(t.clicks)),
	}
	for _, c := range t.clicks {
		s.Clicks = append(s.Clicks, c)
	}
	sortClicks(s.Clicks)
	return s
}

func sortClicks(c []ir.PuzzleClick) {
	sort.Slice(c, func(i, j int) bool { return c[i].Tick < c[j].Tick })
}
