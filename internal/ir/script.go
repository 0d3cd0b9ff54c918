package ir

import "fmt"

// StartKind selects the one-time action applied when a run starts.
type StartKind int

const (
	// StartNow starts playback immediately from the current game state.
	StartNow StartKind = iota
	// StartNewGame resets the host to a fresh game before playback.
	StartNewGame
	// StartSave loads the save file named by StartType.Path before playback.
	StartSave
)

// String returns the script keyword for the start kind.
func (k StartKind) String() string {
	switch k {
	case StartNow:
		return "now"
	case StartNewGame:
		return "newgame"
	case StartSave:
		return "save"
	default:
		return "unknown"
	}
}

// ParseStartKind is the inverse of StartKind.String.
func ParseStartKind(s string) (StartKind, error) {
	for _, k := range []StartKind{StartNow, StartNewGame, StartSave} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown start kind %q", s)
}

// StartType defines how a script run begins.
// Path is only meaningful for StartSave and is passed through untouched.
type StartType struct {
	Kind StartKind `json:"kind"`
	Path string    `json:"path,omitempty"`
}

// ToolKind identifies a one-shot tool action attached to a script line.
type ToolKind int

const (
	// ToolSetPos writes the player position and view angle.
	ToolSetPos ToolKind = iota + 1
)

// Tool is a one-shot action executed when its line is consumed.
type Tool struct {
	Kind     ToolKind `json:"kind"`
	Position Vec3     `json:"position"`
	Angle    Vec2     `json:"angle"`
}

// MousePos is an absolute mouse target.
type MousePos struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Key letters accepted on a script line.
// Uppercase sets an axis, lowercase clears it. P and p are one-tick
// click pulses (left and right button respectively).
const (
	KeyForward      = 'U'
	KeyForwardOff   = 'u'
	KeyBackward     = 'D'
	KeyBackwardOff  = 'd'
	KeyLeft         = 'L'
	KeyLeftOff      = 'l'
	KeyRight        = 'R'
	KeyRightOff     = 'r'
	KeyRun          = 'S'
	KeyRunOff       = 's'
	KeyLeftClick    = 'P'
	KeyRightClick   = 'p'
	ValidKeyLetters = "UuDdLlRrSsPp"
)

// ScriptLine is one timed input event.
//
// Relative is only set by the parser before validation; a validated
// Script always has absolute ticks and Relative == false.
type ScriptLine struct {
	Tick     uint32    `json:"tick"`
	Relative bool      `json:"relative,omitempty"`
	Keys     []byte    `json:"keys,omitempty"`
	Mouse    *MousePos `json:"mouse,omitempty"`
	Tool     *Tool     `json:"tool,omitempty"`
}

// Script is a parsed and validated sequence of timed input events.
//
// INVARIANTS:
//   - Version == ScriptVersion
//   - len(Lines) > 0
//   - Lines[i].Tick < Lines[i+1].Tick
type Script struct {
	Version uint64       `json:"version"`
	Start   StartType    `json:"start"`
	Lines   []ScriptLine `json:"lines"`
}

// LastTick returns the tick of the final line, or 0 for an empty script.
func (s *Script) LastTick() uint32 {
	if s == nil || len(s.Lines) == 0 {
		return 0
	}
	return s.Lines[len(s.Lines)-1].Tick
}
