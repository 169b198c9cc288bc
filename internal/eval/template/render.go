package template

import "strings"

// loopMeta holds the synthetic bindings of one iteration
type loopMeta struct {
	index  int
	count  int
	key    string
	hasKey bool
}

// scope is one frame of the scope chain. Frames are immutable and linked
// innermost-first, so a pushed frame is only visible to the body it was
// pushed for.
type scope struct {
	value  Value
	loop   *loopMeta
	parent *scope
}

func (s *scope) push(v Value, loop *loopMeta) *scope {
	return &scope{value: v, loop: loop, parent: s}
}

// renderer evaluates a node tree into a builder
type renderer struct {
	out *strings.Builder
}

func (r *renderer) nodes(nodes []Node, sc *scope) {
	for _, n := range nodes {
		r.node(n, sc)
	}
}

func (r *renderer) node(n Node, sc *scope) {
	switch n := n.(type) {
	case *Text:
		r.out.WriteString(n.Literal)
	case *Variable:
		if v, ok := resolve(n.Path, sc); ok {
			r.out.WriteString(v.String())
		}
	case *Comment:
	case *Section:
		r.section(n, sc)
	}
}

func (r *renderer) section(s *Section, sc *scope) {
	v, ok := resolve(s.Path, sc)
	truthy := ok && v.Truthy()

	switch s.Kind {
	case SectionPlain:
		switch {
		case v.Kind() == KindList:
			r.iterateList(s.Body, v.Items(), sc)
		case !truthy:
		case v.Kind() == KindMap:
			r.nodes(s.Body, sc.push(v, nil))
		default:
			r.nodes(s.Body, sc)
		}

	case SectionInverted:
		if !truthy {
			r.nodes(s.Body, sc)
		}

	case SectionIf:
		if truthy {
			r.nodes(s.Body, sc)
		} else {
			r.nodes(s.Else, sc)
		}

	case SectionUnless:
		if truthy {
			r.nodes(s.Else, sc)
		} else {
			r.nodes(s.Body, sc)
		}

	case SectionEach:
		switch v.Kind() {
		case KindList:
			r.iterateList(s.Body, v.Items(), sc)
		case KindMap:
			m := v.Map()
			n := m.Len()
			m.Range(func(i int, key string, item Value) bool {
				r.nodes(s.Body, sc.push(item, &loopMeta{index: i, count: n, key: key, hasKey: true}))
				return true
			})
		}
	}
}

func (r *renderer) iterateList(body []Node, items []Value, sc *scope) {
	for i, item := range items {
		r.nodes(body, sc.push(item, &loopMeta{index: i, count: len(items)}))
	}
}

// resolve looks path up in the scope chain. The boolean is false when the
// path is missing.
func resolve(path Path, sc *scope) (Value, bool) {
	switch path.Kind {
	case PathCurrent:
		return sc.value, true

	case PathLoop:
		for f := sc; f != nil; f = f.parent {
			if f.loop == nil || (path.Loop == LoopKey && !f.loop.hasKey) {
				continue
			}
			switch path.Loop {
			case LoopIndex:
				return Number(float64(f.loop.index)), true
			case LoopFirst:
				return Bool(f.loop.index == 0), true
			case LoopLast:
				return Bool(f.loop.index == f.loop.count-1), true
			case LoopKey:
				return String(f.loop.key), true
			}
		}
		return Value{}, false

	default:
		var cur Value
		found := false
		for f := sc; f != nil; f = f.parent {
			if v, ok := f.value.Map().Get(path.Segments[0]); ok {
				cur, found = v, true
				break
			}
		}
		if !found {
			return Value{}, false
		}
		for _, seg := range path.Segments[1:] {
			next, ok := cur.Map().Get(seg)
			if !ok {
				return Value{}, false
			}
			cur = next
		}
		return cur, true
	}
}
