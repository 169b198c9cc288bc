package template

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// tokenKind classifies a scanned token by its sigil
type tokenKind int

const (
	tokenText tokenKind = iota
	tokenVariable
	tokenOpen     // {{#...}}
	tokenInverted // {{^...}}
	tokenClose    // {{/...}}
	tokenComment  // {{!...}}
	tokenElse     // {{else}}
)

var tokenNames = map[tokenKind]string{
	tokenText:     "TEXT",
	tokenVariable: "VARIABLE",
	tokenOpen:     "OPEN",
	tokenInverted: "INVERTED",
	tokenClose:    "CLOSE",
	tokenComment:  "COMMENT",
	tokenElse:     "ELSE",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

// token is a literal run or a tag. For tags, body is the trimmed text after
// the sigil; comment bodies are dropped.
type token struct {
	kind   tokenKind
	body   string
	offset int
}

// scan splits src into literal runs and tags
func scan(src string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(src) {
		start := strings.Index(src[pos:], openDelim)
		if start < 0 {
			tokens = append(tokens, token{kind: tokenText, body: src[pos:], offset: pos})
			break
		}
		start += pos
		if start > pos {
			tokens = append(tokens, token{kind: tokenText, body: src[pos:start], offset: pos})
		}

		inner := start + len(openDelim)
		end := strings.Index(src[inner:], closeDelim)
		if end < 0 {
			return nil, &ParseError{
				Kind: UnterminatedTag,
				Tag:  strings.TrimSpace(src[inner:]),
				Pos:  positionAt(src, start),
			}
		}
		end += inner

		tokens = append(tokens, classify(src[inner:end], start))
		pos = end + len(closeDelim)
	}
	return tokens, nil
}

// classify turns the raw text between delimiters into a tag token
func classify(raw string, offset int) token {
	body := strings.TrimSpace(raw)
	if body == "else" {
		return token{kind: tokenElse, body: body, offset: offset}
	}
	if body == "" {
		return token{kind: tokenVariable, offset: offset}
	}

	kind := tokenVariable
	switch body[0] {
	case '#':
		kind = tokenOpen
	case '^':
		kind = tokenInverted
	case '/':
		kind = tokenClose
	case '!':
		return token{kind: tokenComment, offset: offset}
	default:
		return token{kind: tokenVariable, body: body, offset: offset}
	}
	return token{kind: kind, body: strings.TrimSpace(body[1:]), offset: offset}
}
