package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render is the golden-file form of a result: one line per frame, then
// the collapsed event list and the recorded runs.
func Render(name string, r *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario %s\n", name)
	for _, f := range r.Frames {
		fmt.Fprintln(&buf, f.String())
	}
	fmt.Fprintln(&buf, "events:")
	for _, ev := range r.Events {
		fmt.Fprintf(&buf, "  %s\n", ev)
	}
	fmt.Fprintln(&buf, "runs:")
	for _, run := range r.Runs {
		fmt.Fprintf(&buf, "  %s %s start=%s ticks=%d reason=%s samples=%d\n",
			run.ID, run.Script, run.Start.Kind, run.Ticks, run.Reason, run.TraceLen)
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares its rendering against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the rendering doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}
