package template

import "strings"

// frame is an open block on the parser stack
type frame struct {
	name     string // the name its close tag must carry
	kind     SectionKind
	path     Path
	offset   int
	body     []Node
	elseBody []Node
	inElse   bool
}

func (f *frame) add(n Node) {
	if f.inElse {
		f.elseBody = append(f.elseBody, n)
		return
	}
	f.body = append(f.body, n)
}

func (f *frame) section() *Section {
	s := &Section{Kind: f.kind, Path: f.path, Body: f.body}
	if f.inElse {
		s.Else = f.elseBody
		if s.Else == nil {
			s.Else = []Node{}
		}
	}
	return s
}

// parser builds the node tree from a token stream using an explicit stack
// of open frames; stack[0] is the root and is never popped.
type parser struct {
	src   string
	stack []*frame
}

// parse scans and parses src into a node sequence
func parse(src string) ([]Node, error) {
	tokens, err := scan(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, stack: []*frame{{}}}
	for _, tok := range tokens {
		if err := p.consume(tok); err != nil {
			return nil, err
		}
	}

	if len(p.stack) > 1 {
		open := p.top()
		return nil, &ParseError{
			Kind: UnclosedSection,
			Tag:  open.name,
			Pos:  positionAt(src, open.offset),
		}
	}
	return p.stack[0].body, nil
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) consume(tok token) error {
	switch tok.kind {
	case tokenText:
		p.top().add(&Text{Literal: tok.body})

	case tokenComment:
		p.top().add(&Comment{})

	case tokenVariable:
		path, err := ParsePath(tok.body)
		if err != nil {
			return p.invalid(tok, err.Error())
		}
		p.top().add(&Variable{Path: path})

	case tokenOpen:
		return p.open(tok)

	case tokenInverted:
		path, err := ParsePath(tok.body)
		if err != nil {
			return p.invalid(tok, err.Error())
		}
		p.push(&frame{name: tok.body, kind: SectionInverted, path: path, offset: tok.offset})

	case tokenElse:
		f := p.top()
		if len(p.stack) == 1 || (f.kind != SectionIf && f.kind != SectionUnless) {
			return &ParseError{Kind: MisplacedElse, Tag: "else", Pos: positionAt(p.src, tok.offset),
				Reason: "else is only allowed inside if or unless"}
		}
		if f.inElse {
			return &ParseError{Kind: MisplacedElse, Tag: "else", Pos: positionAt(p.src, tok.offset),
				Reason: "{{#" + f.name + "}} already has an else branch"}
		}
		f.inElse = true

	case tokenClose:
		return p.close(tok)
	}
	return nil
}

// open handles {{#path}} and the {{#if}}, {{#unless}}, {{#each}} helpers
func (p *parser) open(tok token) error {
	fields := strings.Fields(tok.body)
	if len(fields) == 0 {
		return p.invalid(tok, "empty section name")
	}

	if kind, ok := helperKinds[fields[0]]; ok {
		if len(fields) != 2 {
			return p.invalid(tok, fields[0]+" takes exactly one path argument")
		}
		path, err := ParsePath(fields[1])
		if err != nil {
			return p.invalid(tok, err.Error())
		}
		p.push(&frame{name: fields[0], kind: kind, path: path, offset: tok.offset})
		return nil
	}

	path, err := ParsePath(tok.body)
	if err != nil {
		return p.invalid(tok, err.Error())
	}
	p.push(&frame{name: tok.body, kind: SectionPlain, path: path, offset: tok.offset})
	return nil
}

// close pops the innermost frame and appends it to its parent
func (p *parser) close(tok token) error {
	if len(p.stack) == 1 {
		return &ParseError{
			Kind:  MismatchedCloseTag,
			Tag:   tok.body,
			Found: tok.body,
			Pos:   positionAt(p.src, tok.offset),
		}
	}

	f := p.top()
	if f.name != tok.body {
		return &ParseError{
			Kind:     MismatchedCloseTag,
			Tag:      tok.body,
			Expected: f.name,
			Found:    tok.body,
			Pos:      positionAt(p.src, tok.offset),
		}
	}

	p.stack = p.stack[:len(p.stack)-1]
	p.top().add(f.section())
	return nil
}

func (p *parser) push(f *frame) {
	p.stack = append(p.stack, f)
}

func (p *parser) invalid(tok token, reason string) error {
	return &ParseError{
		Kind:   InvalidTag,
		Tag:    tok.body,
		Pos:    positionAt(p.src, tok.offset),
		Reason: reason,
	}
}
