package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/wtas/internal/ir"
)

// DefaultTolerance is used by position assertions that do not set one.
const DefaultTolerance = 1e-4

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Events   []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev)
		}
	}

	return buf.String()
}

// assertInput checks the keys held on the frame that processed a tick.
func assertInput(r *Result, a Assertion) error {
	if a.Tick == nil {
		return fmt.Errorf("input: tick is required")
	}
	f, ok := r.frameAt(*a.Tick)
	if !ok {
		return &AssertionError{
			Type:     AssertInput,
			Expected: fmt.Sprintf("input at tick %d", *a.Tick),
			Actual:   "no frame processed that tick",
		}
	}
	if got := f.Keys(); got != a.Keys {
		return &AssertionError{
			Type:     AssertInput,
			Expected: fmt.Sprintf("keys %q at tick %d", a.Keys, *a.Tick),
			Actual:   fmt.Sprintf("keys %q", got),
		}
	}
	return nil
}

func assertFinalState(r *Result, a Assertion) error {
	var want ir.PlaybackState
	if err := want.UnmarshalText([]byte(a.State)); err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	if r.State != want {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: want.String(),
			Actual:   r.State.String(),
			Events:   r.Events,
		}
	}
	return nil
}

func assertEventCount(r *Result, a Assertion) error {
	count := 0
	for _, ev := range r.Events {
		if ev == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%s to occur %d times", a.Event, a.Count),
			Actual:   fmt.Sprintf("occurred %d times", count),
			Events:   r.Events,
		}
	}
	return nil
}

// assertEventOrder checks that events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
func assertEventOrder(r *Result, a Assertion) error {
	next := 0
	for _, ev := range r.Events {
		if next < len(a.Events) && ev == a.Events[next] {
			next++
		}
	}
	if next < len(a.Events) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("events in order: %s", strings.Join(a.Events, " -> ")),
			Actual:   fmt.Sprintf("%s not found after %d matched", a.Events[next], next),
			Events:   r.Events,
		}
	}
	return nil
}

func assertUnlocks(r *Result, a Assertion) error {
	if len(r.Unlocks) == 0 && len(a.Ticks) == 0 {
		return nil
	}
	if !slices.Equal(r.Unlocks, a.Ticks) {
		return &AssertionError{
			Type:     AssertUnlocks,
			Expected: fmt.Sprintf("unlocks at %v", a.Ticks),
			Actual:   fmt.Sprintf("unlocks at %v", r.Unlocks),
		}
	}
	return nil
}

func assertParseError(r *Result, a Assertion) error {
	for _, msg := range r.ParseErrors {
		if strings.Contains(msg, a.Contains) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertParseError,
		Expected: fmt.Sprintf("a parse error containing %q", a.Contains),
		Actual:   fmt.Sprintf("%q", r.ParseErrors),
	}
}

func assertRun(r *Result, a Assertion) error {
	if a.Index < 0 || a.Index >= len(r.Runs) {
		return &AssertionError{
			Type:     AssertRun,
			Expected: fmt.Sprintf("run %d to be recorded", a.Index),
			Actual:   fmt.Sprintf("%d runs recorded", len(r.Runs)),
		}
	}
	run := r.Runs[a.Index]
	if run.Reason != a.Reason {
		return &AssertionError{
			Type:     AssertRun,
			Expected: fmt.Sprintf("run %d (%s) to end with %q", a.Index, run.ID, a.Reason),
			Actual:   fmt.Sprintf("ended with %q", run.Reason),
		}
	}
	if a.Tick != nil && run.Ticks != *a.Tick {
		return &AssertionError{
			Type:     AssertRun,
			Expected: fmt.Sprintf("run %d (%s) to end after tick %d", a.Index, run.ID, *a.Tick),
			Actual:   fmt.Sprintf("ended after tick %d", run.Ticks),
		}
	}
	return nil
}

func assertPosition(r *Result, a Assertion) error {
	tol := a.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	got := []float64{float64(r.Final.X), float64(r.Final.Y), float64(r.Final.Z)}
	for i := range got {
		if math.Abs(got[i]-a.Position[i]) > tol {
			return &AssertionError{
				Type:     AssertPosition,
				Expected: fmt.Sprintf("position %v (±%g)", a.Position, tol),
				Actual:   fmt.Sprintf("position %v", got),
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertInput:
			err = assertInput(result, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertUnlocks:
			err = assertUnlocks(result, assertion)
		case AssertParseError:
			err = assertParseError(result, assertion)
		case AssertRun:
			err = assertRun(result, assertion)
		case AssertPosition:
			err = assertPosition(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
