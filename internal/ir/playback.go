package ir

import (
	"fmt"
	"strings"
)

// PlaybackState is the state of the playback engine.
//
// Only Stopped, Playing and Paused are ever stored. Skipping is a
// derived view reported to controllers while a Playing run is below
// its skip target.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
	Skipping
)

var playbackStateNames = map[PlaybackState]string{
	Stopped:  "stopped",
	Playing:  "playing",
	Paused:   "paused",
	Skipping: "skipping",
}

func (s PlaybackState) String() string {
	if name, ok := playbackStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlaybackState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s PlaybackState) MarshalText() ([]byte, error) {
	name, ok := playbackStateNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid playback state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PlaybackState) UnmarshalText(text []byte) error {
	want := strings.ToLower(string(text))
	for state, name := range playbackStateNames {
		if name == want {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// InteractionStatus mirrors the host's player interaction mode.
type InteractionStatus uint32

const (
	Walking InteractionStatus = iota
	FocusMode
	SolvingPanel
	Cinematic
)

func (s InteractionStatus) String() string {
	switch s {
	case Walking:
		return "walking"
	case FocusMode:
		return "focus_mode"
	case SolvingPanel:
		return "solving_panel"
	case Cinematic:
		return "cinematic"
	default:
		return fmt.Sprintf("InteractionStatus(%d)", uint32(s))
	}
}

// ParseInteractionStatus converts a raw host value, rejecting unknown values.
func ParseInteractionStatus(raw uint32) (InteractionStatus, error) {
	if raw > uint32(Cinematic) {
		return 0, fmt.Errorf("unknown interaction status %d", raw)
	}
	return InteractionStatus(raw), nil
}
