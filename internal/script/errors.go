package script

import (
	"fmt"
	"strings"
)

// ErrorKind separates grammar failures from post-parse validation failures.
type ErrorKind int

const (
	// KindSyntax is a grammar violation on a source line.
	KindSyntax ErrorKind = iota
	// KindValidation is a bad version or a non-increasing tick.
	KindValidation
	// KindIO means the script could not be read at all.
	KindIO
)

// Error is a single failure tagged with its 1-based source line.
// Line is 0 when the failure has no source position (I/O errors).
type Error struct {
	Kind    ErrorKind
	Line    int
	Message string
}

func (e Error) Error() string {
	if e.Line <= 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ErrorList is the flat list of failures reported for one load.
// It is never returned together with a Script.
type ErrorList []Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Strings renders every error in its wire form ("line N: message").
func (l ErrorList) Strings() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Error()
	}
	return out
}

// Has reports whether any error in the list is of the given kind.
func (l ErrorList) Has(kind ErrorKind) bool {
	for _, e := range l {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// String joins all errors, one per line.
func (l ErrorList) String() string {
	return strings.Join(l.Strings(), "\n")
}

// lineAt returns the 1-based line number of a byte offset in src.
func lineAt(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}
