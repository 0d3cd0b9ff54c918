package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// IntervalKind selects which part of a trace is displayed.
type IntervalKind string

const (
	IntervalFirst   IntervalKind = "first"
	IntervalLast    IntervalKind = "last"
	IntervalBetween IntervalKind = "between"
)

// TraceInterval is a display window over a recorded trace.
//
//   - First: A = n
//   - Last: A = n
//   - Between: A = lower bound, B = upper bound
type TraceInterval struct {
	Kind IntervalKind `json:"kind"`
	A    uint32       `json:"a"`
	B    uint32       `json:"b,omitempty"`
}

// First shows the first n ticks.
func First(n uint32) TraceInterval { return TraceInterval{Kind: IntervalFirst, A: n} }

// Last shows the last n ticks.
func Last(n uint32) TraceInterval { return TraceInterval{Kind: IntervalLast, A: n} }

// Between shows ticks in [a, b).
func Between(a, b uint32) TraceInterval { return TraceInterval{Kind: IntervalBetween, A: a, B: b} }

func (i TraceInterval) String() string {
	if i.Kind == IntervalBetween {
		return fmt.Sprintf("between:%d:%d", i.A, i.B)
	}
	return fmt.Sprintf("%s:%d", i.Kind, i.A)
}

// ParseInterval parses "first:N", "last:N" or "between:A:B".
func ParseInterval(s string) (TraceInterval, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	nums := make([]uint32, 0, 2)
	for _, p := range parts[1:] {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return TraceInterval{}, fmt.Errorf("interval %q: bad number %q", s, p)
		}
		nums = append(nums, uint32(n))
	}

	switch kind := IntervalKind(strings.ToLower(parts[0])); {
	case (kind == IntervalFirst || kind == IntervalLast) && len(nums) == 1:
		return TraceInterval{Kind: kind, A: nums[0]}, nil
	case kind == IntervalBetween && len(nums) == 2:
		return Between(nums[0], nums[1]), nil
	default:
		return TraceInterval{}, fmt.Errorf("interval %q: expected first:N, last:N or between:A:B", s)
	}
}

// TraceDrawOptions configures how a trace is displayed in-world.
// It never affects what is recorded.
type TraceDrawOptions struct {
	SphereRadius                     float32       `json:"sphere_radius" yaml:"sphere_radius"`
	ZOffset                          float32       `json:"z_offset" yaml:"z_offset"`
	ClickIndicatorDistanceMultiplier float32       `json:"click_indicator_distance_multiplier" yaml:"click_indicator_distance_multiplier"`
	ClickIndicatorRadius             float32       `json:"click_indicator_radius" yaml:"click_indicator_radius"`
	Interval                         TraceInterval `json:"interval" yaml:"-"`
}

// DefaultTraceDrawOptions returns the options used before a controller sends any.
func DefaultTraceDrawOptions() TraceDrawOptions {
	return TraceDrawOptions{
		SphereRadius:         0.05,
		ClickIndicatorRadius: 0.01,
		Interval:             Last(100),
	}
}
