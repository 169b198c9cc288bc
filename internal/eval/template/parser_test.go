package template

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lookup(segments ...string) Path {
	return Path{Kind: PathLookup, Segments: segments}
}

func TestScan(t *testing.T) {
	tokens, err := scan("Hi {{ name }}{{#if a}}{{! c\n}}{{else}}{{^b}}{{/b}}{{/if}}!")
	if err != nil {
		t.Fatalf("scan() error = %v", err)
	}

	type tok struct {
		Kind tokenKind
		Body string
		Off  int
	}
	var got []tok
	for _, tk := range tokens {
		got = append(got, tok{tk.kind, tk.body, tk.offset})
	}
	want := []tok{
		{tokenText, "Hi ", 0},
		{tokenVariable, "name", 3},
		{tokenOpen, "if a", 13},
		{tokenComment, "", 22},
		{tokenElse, "else", 30},
		{tokenInverted, "b", 38},
		{tokenClose, "b", 44},
		{tokenClose, "if", 50},
		{tokenText, "!", 57},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scan() mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_SigilWhitespace(t *testing.T) {
	tokens, err := scan("{{ # items }}{{ / items }}")
	if err != nil {
		t.Fatalf("scan() error = %v", err)
	}
	if len(tokens) != 2 || tokens[0].kind != tokenOpen || tokens[0].body != "items" ||
		tokens[1].kind != tokenClose || tokens[1].body != "items" {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
}

func TestParse_Tree(t *testing.T) {
	tmpl, err := Parse("Hello {{user.name}}{{! note }}{{#items}}{{@index}}:{{.}}{{/items}}" +
		"{{^empty}}none{{/empty}}{{#if ok}}y{{else}}n{{/if}}{{#unless ok}}u{{/unless}}{{#each m}}{{@key}}{{/each}}")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []Node{
		&Text{Literal: "Hello "},
		&Variable{Path: lookup("user", "name")},
		&Comment{},
		&Section{Kind: SectionPlain, Path: lookup("items"), Body: []Node{
			&Variable{Path: Path{Kind: PathLoop, Loop: LoopIndex}},
			&Text{Literal: ":"},
			&Variable{Path: Path{Kind: PathCurrent}},
		}},
		&Section{Kind: SectionInverted, Path: lookup("empty"), Body: []Node{&Text{Literal: "none"}}},
		&Section{Kind: SectionIf, Path: lookup("ok"),
			Body: []Node{&Text{Literal: "y"}},
			Else: []Node{&Text{Literal: "n"}},
		},
		&Section{Kind: SectionUnless, Path: lookup("ok"), Body: []Node{&Text{Literal: "u"}}},
		&Section{Kind: SectionEach, Path: lookup("m"), Body: []Node{
			&Variable{Path: Path{Kind: PathLoop, Loop: LoopKey}},
		}},
	}
	if diff := cmp.Diff(want, tmpl.Nodes()); diff != "" {
		t.Errorf("Parse() tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ElseWithEmptyBranch(t *testing.T) {
	tmpl, err := Parse("{{#if a}}x{{else}}{{/if}}")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	s := tmpl.Nodes()[0].(*Section)
	if s.Else == nil || len(s.Else) != 0 {
		t.Errorf("expected empty non-nil else branch, got %#v", s.Else)
	}

	tmpl = MustParse("{{#if a}}x{{/if}}")
	if s := tmpl.Nodes()[0].(*Section); s.Else != nil {
		t.Errorf("expected nil else branch, got %#v", s.Else)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		kind     ErrorKind
		sentinel error
		tag      string
		expected string
		found    string
		line     int
		column   int
	}{
		{name: "mismatched close", template: "{{#a}}x{{/b}}", kind: MismatchedCloseTag, sentinel: ErrMismatchedCloseTag,
			tag: "b", expected: "a", found: "b", line: 1, column: 8},
		{name: "close without open", template: "x{{/a}}", kind: MismatchedCloseTag, sentinel: ErrMismatchedCloseTag,
			tag: "a", found: "a", line: 1, column: 2},
		{name: "helper closed by path", template: "{{#if a}}x{{/a}}", kind: MismatchedCloseTag, sentinel: ErrMismatchedCloseTag,
			tag: "a", expected: "if", found: "a", line: 1, column: 11},
		{name: "crossed blocks", template: "{{#a}}{{#b}}{{/a}}{{/b}}", kind: MismatchedCloseTag, sentinel: ErrMismatchedCloseTag,
			tag: "a", expected: "b", found: "a", line: 1, column: 13},
		{name: "unclosed section", template: "{{#a}}x", kind: UnclosedSection, sentinel: ErrUnclosedSection,
			tag: "a", line: 1, column: 1},
		{name: "innermost unclosed named", template: "{{#a}}\n  {{#each b}}x", kind: UnclosedSection, sentinel: ErrUnclosedSection,
			tag: "each", line: 2, column: 3},
		{name: "else at top level", template: "{{else}}", kind: MisplacedElse, sentinel: ErrMisplacedElse,
			tag: "else", line: 1, column: 1},
		{name: "else in plain section", template: "{{#a}}x{{else}}y{{/a}}", kind: MisplacedElse, sentinel: ErrMisplacedElse,
			tag: "else", line: 1, column: 8},
		{name: "else in each", template: "{{#each a}}x{{else}}y{{/each}}", kind: MisplacedElse, sentinel: ErrMisplacedElse,
			tag: "else", line: 1, column: 13},
		{name: "second else", template: "{{#if a}}x{{else}}y{{else}}z{{/if}}", kind: MisplacedElse, sentinel: ErrMisplacedElse,
			tag: "else", line: 1, column: 20},
		{name: "unterminated tag", template: "Hello {{name", kind: UnterminatedTag, sentinel: ErrUnterminatedTag,
			tag: "name", line: 1, column: 7},
		{name: "unterminated on later line", template: "a\nb {{#if x}}\n{{", kind: UnterminatedTag, sentinel: ErrUnterminatedTag,
			line: 3, column: 1},
		{name: "empty tag", template: "{{}}", kind: InvalidTag, sentinel: ErrInvalidTag, line: 1, column: 1},
		{name: "empty section", template: "{{#}}{{/}}", kind: InvalidTag, sentinel: ErrInvalidTag, line: 1, column: 1},
		{name: "if without path", template: "{{#if}}x{{/if}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "if", line: 1, column: 1},
		{name: "helper with two args", template: "{{#each a b}}x{{/each}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "each a b", line: 1, column: 1},
		{name: "unknown loop variable", template: "{{@count}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "@count", line: 1, column: 1},
		{name: "loop variable in dotted path", template: "{{a.@index}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "a.@index", line: 1, column: 1},
		{name: "empty path segment", template: "{{a..b}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "a..b", line: 1, column: 1},
		{name: "unknown helper expression", template: "{{uppercase name}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "uppercase name", line: 1, column: 1},
		{name: "triple braces", template: "a {{{x}}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "{x", line: 1, column: 3},
		{name: "brace in section path", template: "{{#if a{}}x{{/if}}", kind: InvalidTag, sentinel: ErrInvalidTag,
			tag: "if a{", line: 1, column: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.template)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.template)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if perr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", perr.Kind, tt.kind)
			}
			if perr.Tag != tt.tag {
				t.Errorf("Tag = %q, want %q", perr.Tag, tt.tag)
			}
			if perr.Expected != tt.expected || perr.Found != tt.found {
				t.Errorf("Expected/Found = %q/%q, want %q/%q", perr.Expected, perr.Found, tt.expected, tt.found)
			}
			if perr.Pos.Line != tt.line || perr.Pos.Column != tt.column {
				t.Errorf("Pos = %s, want line %d, column %d", perr.Pos, tt.line, tt.column)
			}
		})
	}
}

func TestParseError_Message(t *testing.T) {
	_, err := Parse("{{#a}}x{{/b}}")
	want := "template: mismatched close tag at line 1, column 8: expected {{/a}}, found {{/b}}"
	if err == nil || err.Error() != want {
		t.Errorf("Error() = %v, want %q", err, want)
	}

	_, err = Parse("{{#a}}x")
	want = "template: unclosed section at line 1, column 1: {{#a}} is never closed"
	if err == nil || err.Error() != want {
		t.Errorf("Error() = %v, want %q", err, want)
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    Path
		wantErr bool
	}{
		{in: ".", want: Path{Kind: PathCurrent}},
		{in: "name", want: lookup("name")},
		{in: "a.b.c", want: lookup("a", "b", "c")},
		{in: "@index", want: Path{Kind: PathLoop, Loop: LoopIndex}},
		{in: "@first", want: Path{Kind: PathLoop, Loop: LoopFirst}},
		{in: "@last", want: Path{Kind: PathLoop, Loop: LoopLast}},
		{in: "@key", want: Path{Kind: PathLoop, Loop: LoopKey}},
		{in: "", wantErr: true},
		{in: "@nope", wantErr: true},
		{in: "a.", wantErr: true},
		{in: ".a", wantErr: true},
		{in: "a.@key", wantErr: true},
		{in: "a b", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePath(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePath(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q) error = %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
		if got.String() != tt.in {
			t.Errorf("Path.String() = %q, want %q", got.String(), tt.in)
		}
	}
}
