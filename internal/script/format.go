package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/wtas/internal/ir"
)

// Format renders the canonical textual form of a validated script.
// All ticks are written absolute; comments and blank lines are not kept.
// Parsing the output yields the same lines as s.
func Format(s *ir.Script) string {
	var b strings.Builder

	fmt.Fprintf(&b, "version %d\n", s.Version)
	switch s.Start.Kind {
	case ir.StartSave:
		fmt.Fprintf(&b, "start save %s\n", s.Start.Path)
	default:
		fmt.Fprintf(&b, "start %s\n", s.Start.Kind)
	}

	for _, line := range s.Lines {
		b.WriteString(FormatLine(line))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatLine renders one line with an absolute tick.
func FormatLine(line ir.ScriptLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d>%s", line.Tick, line.Keys)

	if line.Mouse != nil || line.Tool != nil {
		b.WriteByte('|')
		if line.Mouse != nil {
			fmt.Fprintf(&b, "%d %d", line.Mouse.X, line.Mouse.Y)
		}
	}
	if line.Tool != nil {
		b.WriteString("|setpos")
		for _, f := range []float32{
			line.Tool.Position.X, line.Tool.Position.Y, line.Tool.Position.Z,
			line.Tool.Angle.X, line.Tool.Angle.Y,
		} {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
		}
	}
	return b.String()
}
