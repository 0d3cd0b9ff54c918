package engine

import "github.com/roach88/wtas/internal/ir"

// Cursor derives the per-tick controller state from a script's lines.
//
// Keys are level-sets that persist until changed; clicks are one-tick
// pulses; the mouse position is absolute and persists.
type Cursor struct {
	lines []ir.ScriptLine
	next  int

	started  bool
	lastTick uint32
	state    ir.ControllerState
}

// NewCursor returns a cursor positioned before the first line.
func NewCursor(lines []ir.ScriptLine) *Cursor {
	return &Cursor{lines: lines}
}

// Advance moves the controller state to tick and returns it, along with the
// line consumed on this tick (nil if none).
//
// Repeated calls for the same tick return the same state and consume
// nothing.
func (c *Cursor) Advance(tick uint32) (ir.ControllerState, *ir.ScriptLine) {
	if c.started && tick == c.lastTick {
		return c.state, nil
	}
	c.started = true
	c.lastTick = tick

	c.state.Previous = c.state.Current
	cur := &c.state.Current
	cur.LeftClick = false
	cur.RightClick = false

	if c.next >= len(c.lines) || c.lines[c.next].Tick != tick {
		return c.state, nil
	}

	line := &c.lines[c.next]
	c.next++
	for _, k := range line.Keys {
		applyKey(cur, k)
	}
	if line.Mouse != nil {
		cur.MousePos = *line.Mouse
	}
	return c.state, line
}

func applyKey(s *ir.HalfControllerState, k byte) {
	switch k {
	case ir.KeyForward:
		s.Forward = true
	case ir.KeyForwardOff:
		s.Forward = false
	case ir.KeyBackward:
		s.Backward = true
	case ir.KeyBackwardOff:
		s.Backward = false
	case ir.KeyLeft:
		s.Left = true
	case ir.KeyLeftOff:
		s.Left = false
	case ir.KeyRight:
		s.Right = true
	case ir.KeyRightOff:
		s.Right = false
	case ir.KeyRun:
		s.Running = true
	case ir.KeyRunOff:
		s.Running = false
	case ir.KeyLeftClick:
		s.LeftClick = true
	case ir.KeyRightClick:
		s.RightClick = true
	}
}

// State returns the most recently derived controller state.
func (c *Cursor) State() ir.ControllerState { return c.state }

// Exhausted reports whether every line has been consumed.
func (c *Cursor) Exhausted() bool { return c.next >= len(c.lines) }

// Consumed is the number of lines consumed so far.
func (c *Cursor) Consumed() int { return c.next }
