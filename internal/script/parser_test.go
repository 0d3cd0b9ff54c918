package script

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wtas/internal/ir"
)

func ticks(s *ir.Script) []uint32 {
	out := make([]uint32, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Tick
	}
	return out
}

func TestParse_Minimal(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n1>U\n3>u|5 -2\n")
	require.Empty(t, errs)
	require.NotNil(t, s)

	assert.Equal(t, uint64(0), s.Version)
	assert.Equal(t, ir.StartNow, s.Start.Kind)
	require.Len(t, s.Lines, 2)
	assert.Equal(t, []byte("U"), s.Lines[0].Keys)
	assert.Nil(t, s.Lines[0].Mouse)
	assert.Equal(t, &ir.MousePos{X: 5, Y: -2}, s.Lines[1].Mouse)
}

func TestParse_RelativeTicks(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n1>U\n+5>u\n")
	require.Empty(t, errs)
	assert.Equal(t, []uint32{1, 6}, ticks(s))
	for _, l := range s.Lines {
		assert.False(t, l.Relative, "validated script must not keep relative ticks")
	}
}

func TestParse_RelativeChain(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n+10>U\n+5>u\n20>S\n+1>s\n")
	require.Empty(t, errs)
	assert.Equal(t, []uint32{10, 15, 20, 21}, ticks(s))
}

func TestParse_StartTypes(t *testing.T) {
	tests := []struct {
		src  string
		want ir.StartType
	}{
		{"version 0\nstart now\n1>", ir.StartType{Kind: ir.StartNow}},
		{"version 0\nstart newgame\n1>", ir.StartType{Kind: ir.StartNewGame}},
		{"version 0\nstart save saves/glass factory.witness\n1>", ir.StartType{Kind: ir.StartSave, Path: "saves/glass factory.witness"}},
		{"version 0 start now\n1>", ir.StartType{Kind: ir.StartNow}},
	}

	for _, tt := range tests {
		t.Run(tt.want.Kind.String(), func(t *testing.T) {
			s, errs := Parse(tt.src)
			require.Empty(t, errs)
			assert.Equal(t, tt.want, s.Start)
		})
	}
}

func TestParse_CommentsAndBlankLines(t *testing.T) {
	src := `
        version 0
        start now

        // a comment-only line
        1>|0 0
        2>|
        3>|0 0
        4>|0 0 // test
        5>|0 0//test
        `
	s, errs := Parse(src)
	require.Empty(t, errs)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, ticks(s))
	assert.Nil(t, s.Lines[1].Mouse, "empty mouse part leaves the mouse unchanged")
}

func TestParse_WhitespaceInsideLine(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n 7 > U S P | 3  4 | setpos 1.5 -2 3. 0.25 -0.5\n")
	require.Empty(t, errs)
	require.Len(t, s.Lines, 1)

	line := s.Lines[0]
	assert.Equal(t, uint32(7), line.Tick)
	assert.Equal(t, []byte("USP"), line.Keys)
	assert.Equal(t, &ir.MousePos{X: 3, Y: 4}, line.Mouse)
	require.NotNil(t, line.Tool)
	assert.Equal(t, ir.ToolSetPos, line.Tool.Kind)
	assert.Equal(t, ir.Vec3{X: 1.5, Y: -2, Z: 3}, line.Tool.Position)
	assert.Equal(t, ir.Vec2{X: 0.25, Y: -0.5}, line.Tool.Angle)
}

func TestParse_ToolWithoutMouse(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n1>||setpos 1. 2. 3. 4. 5.\n")
	require.Empty(t, errs)
	assert.Nil(t, s.Lines[0].Mouse)
	require.NotNil(t, s.Lines[0].Tool)
}

func TestParse_VersionError(t *testing.T) {
	s, errs := Parse("version 3\nstart now\n1>U\n")
	assert.Nil(t, s)
	require.Len(t, errs, 1)
	assert.Equal(t, KindValidation, errs[0].Kind)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, "Invalid version 3", errs[0].Message)
}

func TestParse_OrderingErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"equal", "version 0\nstart now\n5>U\n5>u\n", 4, "Expected tick bigger than 5."},
		{"decreasing", "version 0\nstart now\n5>U\n9>u\n2>U\n", 5, "Expected tick bigger than 9."},
		{"relative zero", "version 0\nstart now\n5>U\n+0>u\n", 4, "Expected tick bigger than 5."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, errs := Parse(tt.src)
			assert.Nil(t, s, "never a silent accept")
			require.Len(t, errs, 1)
			assert.Equal(t, KindValidation, errs[0].Kind)
			assert.Equal(t, tt.line, errs[0].Line)
			assert.Equal(t, tt.msg, errs[0].Message)
		})
	}
}

func TestParse_SyntaxErrorsCollected(t *testing.T) {
	src := "version 0\nstart now\n1>U\n2>X\n3>u\n4 U\n5>|1\n"
	s, errs := Parse(src)
	assert.Nil(t, s)
	require.Len(t, errs, 3)

	assert.Equal(t, 4, errs[0].Line)
	assert.Contains(t, errs[0].Message, "unexpected key 'X'")
	assert.Equal(t, 6, errs[1].Line)
	assert.Contains(t, errs[1].Message, "expected '>'")
	assert.Equal(t, 7, errs[2].Line)
	assert.Contains(t, errs[2].Message, "expected integer")

	assert.False(t, errs.Has(KindValidation), "validation is skipped when the grammar fails")
	assert.Equal(t, "line 4: unexpected key 'X', expected one of UuDdLlRrSsPp", errs.Strings()[0])
}

func TestParse_HeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"empty", "", `expected "version"`},
		{"no start", "version 0\n", `expected "start"`},
		{"no lines", "version 0\nstart now\n// nothing\n", "expected at least one script line"},
		{"bad start", "version 0\nstart later\n1>U\n", `expected "now", "newgame" or "save"`},
		{"save without path", "version 0\nstart save\n1>U\n", "expected save path"},
		{"missing version number", "version\nstart now\n1>U\n", "expected version number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, errs := Parse(tt.src)
			assert.Nil(t, s)
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Message, tt.msg)
		})
	}
}

func TestParse_MissingHeaderStillChecksLines(t *testing.T) {
	_, errs := Parse("1>U\n2>Q\n")
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Message, `expected "version"`)
	assert.Contains(t, errs[1].Message, `expected "start"`)
	assert.Equal(t, 2, errs[2].Line)
}

func TestParse_LineNumbersCountNewlines(t *testing.T) {
	_, errs := Parse("\n\nversion 0\n\nstart now\n\n\n1>U\n+2>z\n")
	require.Len(t, errs, 1)
	assert.Equal(t, 9, errs[0].Line)
}

func TestParse_CRLF(t *testing.T) {
	s, errs := Parse("version 0\r\nstart now\r\n1>U\r\n2>u\r\n")
	require.Empty(t, errs)
	assert.Equal(t, []uint32{1, 2}, ticks(s))
}

func TestParse_OutOfRange(t *testing.T) {
	_, errs := Parse("version 0\nstart now\n99999999999>U\n")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "out of range")

	_, errs = Parse("version 0\nstart now\n4294967295>U\n+1>u\n")
	require.Len(t, errs, 1)
	assert.Equal(t, KindValidation, errs[0].Kind)
}

func TestFormat_RoundTrip(t *testing.T) {
	sources := []string{
		"version 0\nstart now\n1>U\n3>u|5 -2\n",
		"version 0\nstart newgame\n+3>UL\n+2>lS|10 10\n+1>P||setpos 1.25 -3 0.5 1 0\n+4>p\n",
		"version 0\nstart save a b.sav\n0>\n10>|  -1 -1 // mouse\n11>DdRr\n",
	}

	for _, src := range sources {
		first, errs := Parse(src)
		require.Empty(t, errs, src)

		canonical := Format(first)
		second, errs := Parse(canonical)
		require.Empty(t, errs, canonical)

		assert.Equal(t, first.Start, second.Start)
		assert.Equal(t, first.Lines, second.Lines)
		assert.Equal(t, canonical, Format(second), "canonical form is a fixed point")
	}
}

func TestFormat_CanonicalText(t *testing.T) {
	s, errs := Parse("version 0\nstart now\n1>U // go\n+5>u|5 -2\n+1>||setpos 1 2 3 4 5\n")
	require.Empty(t, errs)
	assert.Equal(t, "version 0\nstart now\n1>U\n6>u|5 -2\n7>||setpos 1 2 3 4 5\n", Format(s))
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"route/any.wtas": {Data: []byte("version 0\nstart now\n1>U\n")},
		"broken.wtas":    {Data: []byte("version 0\nstart now\n1>X\n")},
	}

	s, errs := Load(fsys, "route/any.wtas")
	require.Empty(t, errs)
	assert.Len(t, s.Lines, 1)

	_, errs = Load(fsys, "broken.wtas")
	require.Len(t, errs, 1)
	assert.Equal(t, KindSyntax, errs[0].Kind)

	_, errs = Load(fsys, "missing.wtas")
	require.Len(t, errs, 1)
	assert.Equal(t, KindIO, errs[0].Kind)
	assert.Equal(t, 0, errs[0].Line)

	_, errs = Load(fsys, "../etc/passwd")
	require.Len(t, errs, 1)
	assert.Equal(t, KindIO, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "invalid script path")
}
