package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/store"
)

// Frame is one host step of a scenario run.
type Frame struct {
	Step uint32 `json:"step"`

	// Held is true when the host frame was held by a pause and the player
	// was not stepped.
	Held bool `json:"held,omitempty"`

	Tick  uint32           `json:"tick"`
	State ir.PlaybackState `json:"state"`

	// Input is nil when the player injected nothing.
	Input *ir.ControllerState `json:"input,omitempty"`

	Interaction ir.InteractionStatus `json:"interaction"`
}

// Keys renders the frame's input levels as script key letters, e.g. "US".
// Returns "-" for no pressed buttons and "none" when nothing was injected.
func (f Frame) Keys() string {
	if f.Input == nil {
		return "none"
	}
	return KeyString(f.Input.Current)
}

// KeyString renders the pressed buttons of h in script key letters.
func KeyString(h ir.HalfControllerState) string {
	var b strings.Builder
	for _, k := range []struct {
		on  bool
		key byte
	}{
		{h.Forward, ir.KeyForward},
		{h.Backward, ir.KeyBackward},
		{h.Left, ir.KeyLeft},
		{h.Right, ir.KeyRight},
		{h.Running, ir.KeyRun},
		{h.LeftClick, ir.KeyLeftClick},
		{h.RightClick, ir.KeyRightClick},
	} {
		if k.on {
			b.WriteByte(k.key)
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// String is the golden-file rendering of a frame.
func (f Frame) String() string {
	if f.Held {
		return fmt.Sprintf("step=%d held tick=%d", f.Step, f.Tick)
	}
	s := fmt.Sprintf("step=%d tick=%d state=%s input=%s", f.Step, f.Tick, f.State, f.Keys())
	if f.Input != nil {
		if m := f.Input.Current.MousePos; m != (ir.MousePos{}) {
			s += fmt.Sprintf(" mouse=%d,%d", m.X, m.Y)
		}
	}
	if f.Interaction != ir.Walking {
		s += " " + f.Interaction.String()
	}
	return s
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	Frames []Frame `json:"frames"`

	// Events lists the protocol event types in emission order, with
	// LiveTransform left out.
	Events []string `json:"events"`

	// Unlocks are the ticks reported by PuzzleUnlocked events.
	Unlocks []uint32 `json:"unlocks,omitempty"`

	// ParseErrors collects every ParseErrors message.
	ParseErrors []string `json:"parse_errors,omitempty"`

	// Runs are the recorded runs, oldest first.
	Runs []store.Run `json:"runs,omitempty"`

	// State is the player's reported state after the last step.
	State ir.PlaybackState `json:"state"`

	// Final is the player's position after the last step.
	Final ir.Vec3 `json:"final"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Frames: []Frame{},
		Events: []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// frameAt returns the last non-held frame that processed tick.
func (r *Result) frameAt(tick uint32) (Frame, bool) {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		f := r.Frames[i]
		if !f.Held && f.Input != nil && f.Tick == tick {
			return f, true
		}
	}
	return Frame{}, false
}
