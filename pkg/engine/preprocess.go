package engine

import "strings"

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites xylem source into plain zygomys:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need no
//     global symbols that could clash with user variables.
//   - kebab-case identifiers such as top-plate become top_plate; zygomys
//     reads a hyphen as subtraction.
//   - ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	p := &preprocessor{src: source}
	p.out.Grow(len(source) + len(source)/4)
	for p.i < len(p.src) {
		c := p.src[p.i]
		switch {
		case c == '"':
			p.quoted('"', true)
		case c == '`':
			p.quoted('`', false)
		case c == ';':
			p.comment()
		case c == ':' && p.peek(1) == '=':
			p.copy(2)
		case c == ':' && isLetter(p.peek(1)):
			p.keyword()
		case c == '-' && p.i > 0 && isIdentChar(p.src[p.i-1]) && isLetter(p.peek(1)):
			p.out.WriteByte('_')
			p.i++
		default:
			p.copy(1)
		}
	}
	return p.out.String()
}

type preprocessor struct {
	src string
	i   int
	out strings.Builder
}

func (p *preprocessor) peek(n int) byte {
	if p.i+n < len(p.src) {
		return p.src[p.i+n]
	}
	return 0
}

func (p *preprocessor) copy(n int) {
	end := min(p.i+n, len(p.src))
	p.out.WriteString(p.src[p.i:end])
	p.i = end
}

// quoted copies a literal delimited by q, honouring backslash escapes when
// escapes is set.
func (p *preprocessor) quoted(q byte, escapes bool) {
	p.copy(1)
	for p.i < len(p.src) && p.src[p.i] != q {
		if escapes && p.src[p.i] == '\\' {
			p.copy(2)
			continue
		}
		p.copy(1)
	}
	p.copy(1)
}

func (p *preprocessor) comment() {
	p.out.WriteString("//")
	for p.i < len(p.src) && p.src[p.i] == ';' {
		p.i++
	}
	for p.i < len(p.src) && p.src[p.i] != '\n' {
		p.copy(1)
	}
}

func (p *preprocessor) keyword() {
	j := p.i + 1
	for j < len(p.src) && isKWChar(p.src[j]) {
		j++
	}
	p.out.WriteString(`"` + kwPrefix + p.src[p.i+1:j] + `"`)
	p.i = j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isKWChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}
