package template

import (
	"fmt"
	"strings"
	"unicode"
)

// Node is an element of a parsed template: *Text, *Variable, *Comment or *Section
type Node interface {
	node()
}

// Text is a literal run emitted verbatim
type Text struct {
	Literal string
}

// Variable emits the value found at Path
type Variable struct {
	Path Path
}

// Comment produces no output
type Comment struct{}

// SectionKind selects how a Section evaluates its path
type SectionKind int

const (
	SectionPlain    SectionKind = iota // {{#path}}
	SectionInverted                    // {{^path}}
	SectionIf                          // {{#if path}}
	SectionUnless                      // {{#unless path}}
	SectionEach                        // {{#each path}}
)

var sectionNames = map[SectionKind]string{
	SectionPlain:    "plain",
	SectionInverted: "inverted",
	SectionIf:       "if",
	SectionUnless:   "unless",
	SectionEach:     "each",
}

func (k SectionKind) String() string {
	return sectionNames[k]
}

// helperKinds maps block helper names to their section kind
var helperKinds = map[string]SectionKind{
	"if":     SectionIf,
	"unless": SectionUnless,
	"each":   SectionEach,
}

// Section is a block. Else is non-nil only for if/unless blocks that
// contained an {{else}} marker.
type Section struct {
	Kind SectionKind
	Path Path
	Body []Node
	Else []Node
}

func (*Text) node()     {}
func (*Variable) node() {}
func (*Comment) node()  {}
func (*Section) node()  {}

// PathKind distinguishes the three shapes a path can take
type PathKind int

const (
	// PathCurrent is "." and refers to the innermost scope value
	PathCurrent PathKind = iota
	// PathLookup is a dotted identifier path such as a.b.c
	PathLookup
	// PathLoop is one of the loop metadata tokens
	PathLoop
)

// LoopVar names a synthetic binding available inside iterating sections
type LoopVar string

const (
	LoopIndex LoopVar = "@index"
	LoopFirst LoopVar = "@first"
	LoopLast  LoopVar = "@last"
	LoopKey   LoopVar = "@key"
)

var loopVars = map[string]LoopVar{
	string(LoopIndex): LoopIndex,
	string(LoopFirst): LoopFirst,
	string(LoopLast):  LoopLast,
	string(LoopKey):   LoopKey,
}

// Path addresses a value in the scope chain
type Path struct {
	Kind     PathKind
	Segments []string // set for PathLookup
	Loop     LoopVar  // set for PathLoop
}

func (p Path) String() string {
	switch p.Kind {
	case PathCurrent:
		return "."
	case PathLoop:
		return string(p.Loop)
	default:
		return strings.Join(p.Segments, ".")
	}
}

// ParsePath parses the text of a path expression
func ParsePath(text string) (Path, error) {
	if text == "." {
		return Path{Kind: PathCurrent}, nil
	}
	if strings.HasPrefix(text, "@") {
		loop, ok := loopVars[text]
		if !ok {
			return Path{}, fmt.Errorf("unknown loop variable %q", text)
		}
		return Path{Kind: PathLoop, Loop: loop}, nil
	}
	if text == "" {
		return Path{}, fmt.Errorf("empty path")
	}

	segments := strings.Split(text, ".")
	for _, seg := range segments {
		switch {
		case seg == "":
			return Path{}, fmt.Errorf("empty segment in path %q", text)
		case strings.HasPrefix(seg, "@"):
			return Path{}, fmt.Errorf("loop variable %q cannot be part of a dotted path", seg)
		case strings.IndexFunc(seg, unicode.IsSpace) >= 0:
			return Path{}, fmt.Errorf("unexpected whitespace in path %q", text)
		case strings.ContainsAny(seg, "{}"):
			// Triple braces and stray delimiters are not supported
			return Path{}, fmt.Errorf("unexpected brace in path %q", text)
		}
	}
	return Path{Kind: PathLookup, Segments: segments}, nil
}
