package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a template parse failure
type ErrorKind int

const (
	// UnterminatedTag means a {{ was never closed by }}
	UnterminatedTag ErrorKind = iota + 1
	// MismatchedCloseTag means a close tag did not name the innermost open block
	MismatchedCloseTag
	// MisplacedElse means {{else}} appeared outside an if/unless block or twice in one
	MisplacedElse
	// UnclosedSection means input ended with a block still open
	UnclosedSection
	// InvalidTag means a tag body is empty or not a valid path or helper call
	InvalidTag
)

var (
	ErrUnterminatedTag    = errors.New("unterminated tag")
	ErrMismatchedCloseTag = errors.New("mismatched close tag")
	ErrMisplacedElse      = errors.New("misplaced else")
	ErrUnclosedSection    = errors.New("unclosed section")
	ErrInvalidTag         = errors.New("invalid tag")
)

var kindErrors = map[ErrorKind]error{
	UnterminatedTag:    ErrUnterminatedTag,
	MismatchedCloseTag: ErrMismatchedCloseTag,
	MisplacedElse:      ErrMisplacedElse,
	UnclosedSection:    ErrUnclosedSection,
	InvalidTag:         ErrInvalidTag,
}

func (k ErrorKind) String() string {
	if err, ok := kindErrors[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Position locates a tag in the template source
type Position struct {
	Offset int // byte offset of the opening {{
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

func positionAt(src string, offset int) Position {
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset + 1
	if nl := strings.LastIndexByte(src[:offset], '\n'); nl >= 0 {
		col = offset - nl
	}
	return Position{Offset: offset, Line: line, Column: col}
}

// ParseError reports a malformed template
type ParseError struct {
	Kind     ErrorKind
	Tag      string // name of the offending block or tag body
	Expected string // for MismatchedCloseTag, the name of the innermost open block
	Found    string // for MismatchedCloseTag, the name the close tag carried
	Pos      Position
	Reason   string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("template: ")
	b.WriteString(e.Kind.String())
	b.WriteString(" at ")
	b.WriteString(e.Pos.String())
	switch e.Kind {
	case MismatchedCloseTag:
		if e.Expected == "" {
			fmt.Fprintf(&b, ": {{/%s}} has no open block", e.Found)
		} else {
			fmt.Fprintf(&b, ": expected {{/%s}}, found {{/%s}}", e.Expected, e.Found)
		}
	case UnclosedSection:
		fmt.Fprintf(&b, ": {{#%s}} is never closed", e.Tag)
	default:
		if e.Tag != "" {
			fmt.Fprintf(&b, ": %q", e.Tag)
		}
	}
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the sentinel error for the kind, so errors.Is works
func (e *ParseError) Unwrap() error {
	return kindErrors[e.Kind]
}
