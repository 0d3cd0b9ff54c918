// Package protocol defines the messages exchanged between the playback engine
// and a remote controller, their wire encoding, and the TCP transport.
package protocol

import "github.com/roach88/wtas/internal/ir"

// Command is a controller -> engine message.
//
// The set is closed: only the types in this package implement it, and every
// switch over commands in this module is exhaustive.
type Command interface {
	commandType() string
	sealedCommand()
}

// PlayFile starts (or, while paused, resumes) the named script.
// Name is relative to the engine's scripts directory.
type PlayFile struct {
	Name string `json:"name"`
}

// Stop ends the current run.
type Stop struct{}

// SkipTo fast-forwards the run until Tick.
type SkipTo struct {
	Tick uint32 `json:"tick"`
}

// PauseAt pauses the run when it reaches Tick. Zero disables pausing.
type PauseAt struct {
	Tick uint32 `json:"tick"`
}

// AdvanceFrame pauses the run, or steps a paused run by one tick.
type AdvanceFrame struct{}

// TeleportToTick moves the player to where they were at Tick of the last
// run. Only honoured while stopped.
type TeleportToTick struct {
	Tick uint32 `json:"tick"`
}

// SetTraceOptions replaces the trace display options.
type SetTraceOptions struct {
	Options ir.TraceDrawOptions `json:"options"`
}

func (PlayFile) commandType() string        { return "PlayFile" }
func (Stop) commandType() string            { return "Stop" }
func (SkipTo) commandType() string          { return "SkipTo" }
func (PauseAt) commandType() string         { return "PauseAt" }
func (AdvanceFrame) commandType() string    { return "AdvanceFrame" }
func (TeleportToTick) commandType() string  { return "TeleportToTick" }
func (SetTraceOptions) commandType() string { return "SetTraceOptions" }

func (PlayFile) sealedCommand()        {}
func (Stop) sealedCommand()            {}
func (SkipTo) sealedCommand()          {}
func (PauseAt) sealedCommand()         {}
func (AdvanceFrame) sealedCommand()    {}
func (TeleportToTick) sealedCommand()  {}
func (SetTraceOptions) sealedCommand() {}

// Event is an engine -> controller message. Like Command, the set is closed.
type Event interface {
	eventType() string
	sealedEvent()
}

// PlaybackStateChanged reports the playback state as the controller should
// display it.
type PlaybackStateChanged struct {
	State ir.PlaybackState `json:"state"`
}

// CurrentTick reports the tick the run is on.
type CurrentTick struct {
	Tick uint32 `json:"tick"`
}

// ParseErrors carries every error from a failed script load, each already
// rendered with its line number.
type ParseErrors struct {
	Errors []string `json:"errors"`
}

// LiveTransform is the player's transform as of the latest driver call.
type LiveTransform struct {
	Position    ir.Vec3 `json:"position"`
	Orientation ir.Vec2 `json:"orientation"`
}

// PuzzleUnlocked reports that the game unlocked a puzzle during the run.
type PuzzleUnlocked struct {
	Tick uint32 `json:"tick"`
}

func (PlaybackStateChanged) eventType() string { return "PlaybackStateChanged" }
func (CurrentTick) eventType() string          { return "CurrentTick" }
func (ParseErrors) eventType() string          { return "ParseErrors" }
func (LiveTransform) eventType() string        { return "LiveTransform" }
func (PuzzleUnlocked) eventType() string       { return "PuzzleUnlocked" }

func (PlaybackStateChanged) sealedEvent() {}
func (CurrentTick) sealedEvent()          {}
func (ParseErrors) sealedEvent()          {}
func (LiveTransform) sealedEvent()        {}
func (PuzzleUnlocked) sealedEvent()       {}

// TypeOf returns the wire type name of a command or event, or "" for
// anything else.
func TypeOf(msg any) string {
	switch m := msg.(type) {
	case Command:
		return m.commandType()
	case Event:
		return m.eventType()
	default:
		return ""
	}
}
