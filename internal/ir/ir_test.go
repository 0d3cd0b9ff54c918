package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"int", IRInt(-100), "-100"},
		{"bool", IRBool(true), "true"},
		{"empty array", IRArray{}, "[]"},
		{"sorted keys", IRObject{"zebra": IRInt(1), "alpha": IRInt(2)}, `{"alpha":2,"zebra":1}`},
		{"no html escape", IRString("<a&b>"), `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNil(t *testing.T) {
	_, err := MarshalCanonical(IRArray{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" as e + combining acute accent normalizes to the precomposed form
	decomposed, err := MarshalCanonical(IRString("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(IRString("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestScriptHash_IgnoresRelativeNotation(t *testing.T) {
	a := &Script{Lines: []ScriptLine{{Tick: 1, Keys: []byte("U")}, {Tick: 6, Keys: []byte("u")}}}
	b := &Script{Lines: []ScriptLine{{Tick: 1, Keys: []byte("U")}, {Tick: 6, Keys: []byte("u")}}}

	ha, err := ScriptHash(a)
	require.NoError(t, err)
	hb, err := ScriptHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	b.Lines[1].Mouse = &MousePos{X: 5, Y: -2}
	hc, err := ScriptHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestPlaybackStateText(t *testing.T) {
	data, err := json.Marshal(map[string]PlaybackState{"state": Skipping})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"skipping"}`, string(data))

	var decoded map[string]PlaybackState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Skipping, decoded["state"])

	var s PlaybackState
	assert.Error(t, s.UnmarshalText([]byte("rewinding")))
}

func TestControllerEdges(t *testing.T) {
	c := ControllerState{
		Current:  HalfControllerState{Forward: true, LeftClick: false},
		Previous: HalfControllerState{Forward: false, LeftClick: true, Running: true},
	}

	assert.Equal(t, EdgePressed, c.Edge(ButtonForward))
	assert.Equal(t, EdgeReleased, c.Edge(ButtonLeftClick))
	assert.Equal(t, EdgeReleased, c.Edge(ButtonRunning))
	assert.Equal(t, EdgeNone, c.Edge(ButtonBackward))
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    TraceInterval
		wantErr bool
	}{
		{in: "last:100", want: Last(100)},
		{in: "First:3", want: First(3)},
		{in: "between:5:20", want: Between(5, 20)},
		{in: "between:5", wantErr: true},
		{in: "middle:4", wantErr: true},
		{in: "last:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInteractionStatus(t *testing.T) {
	s, err := ParseInteractionStatus(2)
	require.NoError(t, err)
	assert.Equal(t, SolvingPanel, s)

	_, err = ParseInteractionStatus(9)
	assert.Error(t, err)
}
