package analysis

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokPunct
	tokTemplate
	tokRegex
)

type token struct {
	kind tokenKind
	// text is the identifier, the punctuator, or the unquoted string value.
	text string
	line int
	col  int
}

// keywords after which a slash starts a regular expression literal.
var regexAfterKeyword = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type lexer struct {
	src  []byte
	i    int
	line int
	col  int
	out  []token
}

// tokenize splits source text into tokens. Comments and whitespace are
// dropped; template literals and regular expressions are kept opaque.
func tokenize(src []byte) []token {
	lx := &lexer{src: src, line: 1, col: 1}
	lx.run()
	return lx.out
}

func (lx *lexer) advance(n int) {
	for k := 0; k < n && lx.i < len(lx.src); k++ {
		if lx.src[lx.i] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.i++
	}
}

func (lx *lexer) peek(off int) byte {
	if lx.i+off < len(lx.src) {
		return lx.src[lx.i+off]
	}
	return 0
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (lx *lexer) emit(kind tokenKind, text string, line, col int) {
	lx.out = append(lx.out, token{kind: kind, text: text, line: line, col: col})
}

func (lx *lexer) regexAllowed() bool {
	if len(lx.out) == 0 {
		return true
	}
	prev := lx.out[len(lx.out)-1]
	switch prev.kind {
	case tokIdent:
		return regexAfterKeyword[prev.text]
	case tokPunct:
		return prev.text != ")" && prev.text != "]" && prev.text != "}"
	default:
		return false
	}
}

func (lx *lexer) run() {
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		line, col := lx.line, lx.col
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.advance(1)
		case c == '/' && lx.peek(1) == '/':
			for lx.i < len(lx.src) && lx.src[lx.i] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peek(1) == '*':
			lx.advance(2)
			for lx.i < len(lx.src) && !(lx.src[lx.i] == '*' && lx.peek(1) == '/') {
				lx.advance(1)
			}
			lx.advance(2)
		case c == '"' || c == '\'':
			lx.emit(tokString, lx.readString(c), line, col)
		case c == '`':
			lx.skipTemplate()
			lx.emit(tokTemplate, "", line, col)
		case c == '/' && lx.regexAllowed():
			lx.skipRegex()
			lx.emit(tokRegex, "", line, col)
		case isIdentStart(c):
			start := lx.i
			for lx.i < len(lx.src) && isIdentPart(lx.src[lx.i]) {
				lx.advance(1)
			}
			lx.emit(tokIdent, string(lx.src[start:lx.i]), line, col)
		case c >= '0' && c <= '9':
			start := lx.i
			for lx.i < len(lx.src) && (isIdentPart(lx.src[lx.i]) || lx.src[lx.i] == '.') {
				lx.advance(1)
			}
			lx.emit(tokNumber, string(lx.src[start:lx.i]), line, col)
		case c == '=' && lx.peek(1) == '>':
			lx.advance(2)
			lx.emit(tokPunct, "=>", line, col)
		case c == '.' && lx.peek(1) == '.' && lx.peek(2) == '.':
			lx.advance(3)
			lx.emit(tokPunct, "...", line, col)
		case c == '?' && lx.peek(1) == '.':
			lx.advance(2)
			lx.emit(tokPunct, ".", line, col)
		default:
			lx.advance(1)
			lx.emit(tokPunct, string(c), line, col)
		}
	}
}

func (lx *lexer) readString(quote byte) string {
	lx.advance(1)
	var buf []byte
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		if c == quote || c == '\n' {
			break
		}
		if c == '\\' && lx.i+1 < len(lx.src) {
			buf = append(buf, lx.src[lx.i+1])
			lx.advance(2)
			continue
		}
		buf = append(buf, c)
		lx.advance(1)
	}
	lx.advance(1)
	return string(buf)
}

func (lx *lexer) skipTemplate() {
	lx.advance(1)
	depth := 0
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		switch {
		case c == '\\':
			lx.advance(2)
			continue
		case c == '$' && lx.peek(1) == '{':
			depth++
			lx.advance(2)
			continue
		case c == '}' && depth > 0:
			depth--
		case c == '`' && depth == 0:
			lx.advance(1)
			return
		}
		lx.advance(1)
	}
}

func (lx *lexer) skipRegex() {
	lx.advance(1)
	inClass := false
	for lx.i < len(lx.src) {
		c := lx.src[lx.i]
		switch {
		case c == '\\':
			lx.advance(2)
			continue
		case c == '\n':
			return
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			lx.advance(1)
			for lx.i < len(lx.src) && isIdentPart(lx.src[lx.i]) {
				lx.advance(1)
			}
			return
		}
		lx.advance(1)
	}
}
