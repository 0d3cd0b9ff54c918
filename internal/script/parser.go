package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/wtas/internal/ir"
)

type stage int

const (
	stageVersion stage = iota
	stageStart
	stageLines
)

// parser holds the state of one Parse call.
// Errors are collected for every bad line rather than stopping at the first.
type parser struct {
	src    string
	stage  stage
	errs   ErrorList
	script ir.Script

	versionOffset int
	lineOffsets   []int // source offset of each entry in script.Lines
}

// Parse turns script source into a validated Script.
//
// On failure the returned ErrorList holds every grammar error found, or the
// single validation error if the grammar was fine. No partial Script is
// ever returned alongside errors.
func Parse(src string) (*ir.Script, ErrorList) {
	p := &parser{src: src}
	p.parse()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	if errs := p.validate(); len(errs) > 0 {
		return nil, errs
	}

	s := p.script
	return &s, nil
}

func (p *parser) parse() {
	offset := 0
	for offset <= len(p.src) {
		end := strings.IndexByte(p.src[offset:], '\n')
		if end < 0 {
			end = len(p.src)
		} else {
			end += offset
		}
		p.parseSourceLine(p.src[offset:end], offset)
		offset = end + 1
	}

	eof := len(p.src)
	switch {
	case p.stage == stageVersion:
		p.errorf(eof, `expected "version"`)
	case p.stage == stageStart:
		p.errorf(eof, `expected "start"`)
	case len(p.script.Lines) == 0 && len(p.errs) == 0:
		p.errorf(eof, "expected at least one script line")
	}
}

// parseSourceLine strips the comment and surrounding blanks from one line of
// source, then hands whatever is left to the current stage.
func (p *parser) parseSourceLine(raw string, base int) {
	content := raw
	if i := strings.Index(content, "//"); i >= 0 {
		content = content[:i]
	}
	content = strings.TrimRight(content, " \t\r")
	trimmed := strings.TrimLeft(content, " \t")
	if trimmed == "" {
		return
	}
	p.consume(trimmed, base+len(content)-len(trimmed))
}

func (p *parser) consume(text string, base int) {
	switch p.stage {
	case stageVersion:
		p.stage = stageStart
		rest, ok := keyword(text, "version")
		if !ok {
			p.errorf(base, `expected "version", found %s`, describe(text))
			p.consume(text, base)
			return
		}
		restBase := base + len(text) - len(rest)
		digits := leadingDigits(rest)
		if digits == "" {
			p.errorf(restBase, "expected version number, found %s", describe(rest))
			return
		}
		v, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			p.errorf(restBase, "version %s out of range", digits)
			return
		}
		p.script.Version = v
		p.versionOffset = base
		if rest = strings.TrimLeft(rest[len(digits):], " \t"); rest != "" {
			p.consume(rest, base+len(text)-len(rest))
		}

	case stageStart:
		p.stage = stageLines
		rest, ok := keyword(text, "start")
		if !ok {
			p.errorf(base, `expected "start", found %s`, describe(text))
			p.consume(text, base)
			return
		}
		p.parseStart(rest, base+len(text)-len(rest))

	case stageLines:
		p.parseScriptLine(text, base)
	}
}

func (p *parser) parseStart(text string, base int) {
	if rest, ok := keyword(text, "save"); ok {
		if rest == "" {
			p.errorf(base+len(text), "expected save path")
			return
		}
		p.script.Start = ir.StartType{Kind: ir.StartSave, Path: rest}
		return
	}

	switch text {
	case "now":
		p.script.Start = ir.StartType{Kind: ir.StartNow}
	case "newgame":
		p.script.Start = ir.StartType{Kind: ir.StartNewGame}
	default:
		p.errorf(base, `expected "now", "newgame" or "save", found %s`, describe(text))
	}
}

// parseScriptLine parses: tick ">" key* mouse_part? tool_part?
func (p *parser) parseScriptLine(text string, base int) {
	sc := &scanner{s: text, base: base}
	var line ir.ScriptLine

	if sc.peek() == '+' {
		line.Relative = true
		sc.pos++
	}
	tickOffset := sc.offset()
	digits := sc.digits()
	if digits == "" {
		p.errorf(sc.offset(), "expected tick number, found %s", sc.describe())
		return
	}
	tick, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		p.errorf(tickOffset, "tick %s out of range", digits)
		return
	}
	line.Tick = uint32(tick)

	sc.skipSpace()
	if sc.peek() != '>' {
		p.errorf(sc.offset(), "expected '>' after tick, found %s", sc.describe())
		return
	}
	sc.pos++

	for {
		sc.skipSpace()
		c := sc.peek()
		if sc.eof() || c == '|' {
			break
		}
		if strings.IndexByte(ir.ValidKeyLetters, c) < 0 {
			p.errorf(sc.offset(), "unexpected key %s, expected one of %s", sc.describe(), ir.ValidKeyLetters)
			return
		}
		line.Keys = append(line.Keys, c)
		sc.pos++
	}

	if sc.peek() == '|' {
		sc.pos++
		sc.skipSpace()
		if c := sc.peek(); c == '-' || isDigit(c) {
			x, ok := p.signedInt(sc)
			if !ok {
				return
			}
			sc.skipSpace()
			y, ok := p.signedInt(sc)
			if !ok {
				return
			}
			line.Mouse = &ir.MousePos{X: x, Y: y}
		}

		sc.skipSpace()
		if sc.peek() == '|' {
			sc.pos++
			sc.skipSpace()
			if strings.HasPrefix(sc.rest(), "setpos") {
				sc.pos += len("setpos")
				var vals [5]float32
				for i := range vals {
					sc.skipSpace()
					f, ok := p.float(sc)
					if !ok {
						return
					}
					vals[i] = f
				}
				line.Tool = &ir.Tool{
					Kind:     ir.ToolSetPos,
					Position: ir.Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
					Angle:    ir.Vec2{X: vals[3], Y: vals[4]},
				}
			}
		}
	}

	sc.skipSpace()
	if !sc.eof() {
		p.errorf(sc.offset(), "unexpected %s at end of line", sc.describe())
		return
	}

	p.script.Lines = append(p.script.Lines, line)
	p.lineOffsets = append(p.lineOffsets, base)
}

func (p *parser) signedInt(sc *scanner) (int32, bool) {
	start := sc.offset()
	num := sc.number(false)
	if num == "" {
		p.errorf(start, "expected integer, found %s", sc.describe())
		return 0, false
	}
	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil {
		p.errorf(start, "integer %s out of range", num)
		return 0, false
	}
	return int32(n), true
}

func (p *parser) float(sc *scanner) (float32, bool) {
	start := sc.offset()
	num := sc.number(true)
	if num == "" {
		p.errorf(start, "expected number, found %s", sc.describe())
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 32)
	if err != nil {
		p.errorf(start, "number %s out of range", num)
		return 0, false
	}
	return float32(f), true
}

// validate resolves relative ticks and checks version and tick ordering.
func (p *parser) validate() ErrorList {
	s := &p.script
	if s.Version != ir.ScriptVersion {
		return ErrorList{{
			Kind:    KindValidation,
			Line:    lineAt(p.src, p.versionOffset),
			Message: fmt.Sprintf("Invalid version %d", s.Version),
		}}
	}

	// The first line's literal tick is the baseline, even if written as +N.
	s.Lines[0].Relative = false
	prev := s.Lines[0].Tick
	for i := 1; i < len(s.Lines); i++ {
		line := &s.Lines[i]
		if line.Relative {
			abs := uint64(prev) + uint64(line.Tick)
			if abs > math.MaxUint32 {
				return ErrorList{{
					Kind:    KindValidation,
					Line:    lineAt(p.src, p.lineOffsets[i]),
					Message: fmt.Sprintf("tick %d+%d out of range", prev, line.Tick),
				}}
			}
			line.Tick = uint32(abs)
			line.Relative = false
		}

		if line.Tick <= prev {
			return ErrorList{{
				Kind:    KindValidation,
				Line:    lineAt(p.src, p.lineOffsets[i]),
				Message: fmt.Sprintf("Expected tick bigger than %d.", prev),
			}}
		}
		prev = line.Tick
	}

	return nil
}

func (p *parser) errorf(offset int, format string, args ...any) {
	p.errs = append(p.errs, Error{
		Kind:    KindSyntax,
		Line:    lineAt(p.src, offset),
		Message: fmt.Sprintf(format, args...),
	})
}

// keyword matches kw at the start of text as a whole word and returns the
// remaining text with leading blanks removed.
func keyword(text, kw string) (string, bool) {
	if !strings.HasPrefix(text, kw) {
		return "", false
	}
	rest := text[len(kw):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimLeft(rest, " \t"), true
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func describe(s string) string {
	if s == "" {
		return "end of line"
	}
	r, _ := utf8.DecodeRuneInString(s)
	return strconv.QuoteRune(r)
}

// scanner walks one line of source, tracking the absolute byte offset.
type scanner struct {
	s    string
	pos  int
	base int
}

func (sc *scanner) eof() bool { return sc.pos >= len(sc.s) }
func (sc *scanner) offset() int { return sc.base + sc.pos }
func (sc *scanner) rest() string { return sc.s[sc.pos:] }
func (sc *scanner) describe() string { return describe(sc.rest()) }

func (sc *scanner) peek() byte {
	if sc.eof() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *scanner) skipSpace() {
	for !sc.eof() && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *scanner) digits() string {
	d := leadingDigits(sc.rest())
	sc.pos += len(d)
	return d
}

// number scans -?DIGITS, optionally followed by .DIGITS* when fraction is set.
// Nothing is consumed if no digits follow the sign.
func (sc *scanner) number(fraction bool) string {
	start := sc.pos
	if sc.peek() == '-' {
		sc.pos++
	}
	if sc.digits() == "" {
		sc.pos = start
		return ""
	}
	if fraction && sc.peek() == '.' {
		sc.pos++
		sc.digits()
	}
	return sc.s[start:sc.pos]
}
