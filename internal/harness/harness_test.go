package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/ir"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertions failed:\n%v", result.Errors)
		})
	}
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"walk", "pause", "skip", "panel"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			_, err = RunWithGolden(t, s)
			require.NoError(t, err)
		})
	}
}

func TestRun_HeldFramesDoNotStepHost(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "pause.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	var held []uint32
	for _, f := range result.Frames {
		if f.Held {
			held = append(held, f.Step)
		}
	}
	assert.Equal(t, []uint32{3, 5}, held)
	assert.Equal(t, ir.Stopped, result.State)
}

func TestRun_FailingAssertions(t *testing.T) {
	tick := uint32(1)
	s := &Scenario{
		Name:        "failing",
		Description: "every assertion is wrong",
		Scripts:     map[string]string{"a.wtas": "version 0\nstart now\n1>U\n"},
		Steps:       4,
		Commands: []CommandStep{
			{At: 0, Type: "PlayFile", Data: map[string]any{"name": "a.wtas"}},
		},
		Assertions: []Assertion{
			{Type: AssertInput, Tick: &tick, Keys: "D"},
			{Type: AssertFinalState, State: "playing"},
			{Type: AssertEventCount, Event: "PuzzleUnlocked", Count: 1},
			{Type: AssertUnlocks, Ticks: []uint32{1}},
			{Type: AssertRun, Index: 0, Reason: "stopped"},
			{Type: AssertPosition, Position: []float64{5, 0, 0}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], `keys "D" at tick 1`)
	assert.Contains(t, result.Errors[0], `Actual: keys "U"`)
	assert.Contains(t, result.Errors[1], "Expected: playing")
	assert.Contains(t, result.Errors[4], `ended with "finished"`)
}

func TestRun_MissingScriptFile(t *testing.T) {
	s := &Scenario{
		Name:        "missing",
		Description: "script file is absent",
		ScriptFiles: []string{"testdata/scripts/nope.wtas"},
		Steps:       1,
		Commands:    []CommandStep{{Type: "Stop"}},
	}
	_, err := Run(s)
	assert.ErrorContains(t, err, "failed to read script file")
}

func TestRun_NotEnoughRunIDs(t *testing.T) {
	s := &Scenario{
		Name:        "ids",
		Description: "two plays, one id",
		Scripts:     map[string]string{"a.wtas": "version 0\nstart now\n1>U\n"},
		Steps:       2,
		RunIDs:      []string{"only"},
		Commands: []CommandStep{
			{At: 0, Type: "PlayFile", Data: map[string]any{"name": "a.wtas"}},
			{At: 1, Type: "PlayFile", Data: map[string]any{"name": "a.wtas"}},
		},
	}
	_, err := Run(s)
	assert.ErrorContains(t, err, "2 PlayFile commands")
}

func TestRun_ReplacedRunsUseGivenIDs(t *testing.T) {
	s := &Scenario{
		Name:        "replace",
		Description: "a second PlayFile replaces the first run",
		Scripts:     map[string]string{"a.wtas": "version 0\nstart now\n1>U\n100>u\n"},
		Steps:       6,
		RunIDs:      []string{"first", "second"},
		Commands: []CommandStep{
			{At: 0, Type: "PlayFile", Data: map[string]any{"name": "a.wtas"}},
			{At: 3, Type: "PlayFile", Data: map[string]any{"name": "a.wtas"}},
			{At: 5, Type: "Stop"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Runs, 2)
	assert.Equal(t, "first", result.Runs[0].ID)
	assert.Equal(t, "replaced", result.Runs[0].Reason)
	assert.Equal(t, "second", result.Runs[1].ID)
	assert.Equal(t, "stopped", result.Runs[1].Reason)
}

func TestFrame_String(t *testing.T) {
	in := ir.ControllerState{Current: ir.HalfControllerState{
		Forward:  true,
		Running:  true,
		MousePos: ir.MousePos{X: 3, Y: -4},
	}}
	f := Frame{Step: 2, Tick: 7, State: ir.Playing, Input: &in, Interaction: ir.FocusMode}
	assert.Equal(t, "step=2 tick=7 state=playing input=US mouse=3,-4 focus_mode", f.String())

	assert.Equal(t, "step=3 held tick=7", Frame{Step: 3, Held: true, Tick: 7}.String())
	assert.Equal(t, "none", Frame{}.Keys())
	assert.Equal(t, "-", KeyString(ir.HalfControllerState{}))
}
