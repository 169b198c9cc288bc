package template

import "strings"

// Template is a parsed template. It holds no render state and may be
// rendered concurrently against any number of contexts.
type Template struct {
	source string
	nodes  []Node
}

// Parse scans and parses src. The returned error is a *ParseError.
func Parse(src string) (*Template, error) {
	nodes, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Template{source: src, nodes: nodes}, nil
}

// MustParse is like Parse but panics on error
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the text the template was parsed from
func (t *Template) Source() string { return t.source }

// Nodes returns the top-level node sequence
func (t *Template) Nodes() []Node { return t.nodes }

// Render evaluates the template against ctx. Missing paths render as
// nothing; rendering never fails.
func (t *Template) Render(ctx Value) string {
	var out strings.Builder
	out.Grow(len(t.source))
	r := &renderer{out: &out}
	r.nodes(t.nodes, &scope{value: ctx})
	return out.String()
}

// Render parses src and renders it against ctx in one step
func Render(src string, ctx Value) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Render(ctx), nil
}
