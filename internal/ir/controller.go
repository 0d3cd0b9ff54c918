package ir

// HalfControllerState is the momentary simulated input for one tick.
type HalfControllerState struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Running  bool `json:"running"`

	MousePos   MousePos `json:"mouse_pos"`
	LeftClick  bool     `json:"left_click"`
	RightClick bool     `json:"right_click"`
}

// ControllerState pairs the current input with the previous tick's input.
// Previous enables press/release edge detection by the host.
type ControllerState struct {
	Current  HalfControllerState `json:"current"`
	Previous HalfControllerState `json:"previous"`
}

// Button identifies a boolean input of HalfControllerState.
type Button int

const (
	ButtonForward Button = iota
	ButtonBackward
	ButtonLeft
	ButtonRight
	ButtonRunning
	ButtonLeftClick
	ButtonRightClick
)

// Buttons lists every button in injection order.
var Buttons = []Button{
	ButtonForward,
	ButtonBackward,
	ButtonLeft,
	ButtonRight,
	ButtonRunning,
	ButtonLeftClick,
	ButtonRightClick,
}

func (b Button) String() string {
	switch b {
	case ButtonForward:
		return "forward"
	case ButtonBackward:
		return "backward"
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonRunning:
		return "running"
	case ButtonLeftClick:
		return "left_click"
	case ButtonRightClick:
		return "right_click"
	default:
		return "unknown"
	}
}

// Get returns the level of a button.
func (h HalfControllerState) Get(b Button) bool {
	switch b {
	case ButtonForward:
		return h.Forward
	case ButtonBackward:
		return h.Backward
	case ButtonLeft:
		return h.Left
	case ButtonRight:
		return h.Right
	case ButtonRunning:
		return h.Running
	case ButtonLeftClick:
		return h.LeftClick
	case ButtonRightClick:
		return h.RightClick
	default:
		return false
	}
}

// Edge describes a button transition between the previous and current tick.
type Edge int

const (
	EdgeNone Edge = iota
	EdgePressed
	EdgeReleased
)

// Edge reports whether b was pressed or released on this tick.
func (c ControllerState) Edge(b Button) Edge {
	cur, prev := c.Current.Get(b), c.Previous.Get(b)
	switch {
	case cur && !prev:
		return EdgePressed
	case !cur && prev:
		return EdgeReleased
	default:
		return EdgeNone
	}
}
