// Package lexer turns SQL source text plus a dialect tag into a token
// stream, per spec.md §4.1. Identifier quoting, string escaping, and
// keyword sets vary by dialect; everything else about the scan loop is
// shared.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"yachtsql/internal/errs"
)

// Lexer scans one SQL statement at a time.
type Lexer struct {
	src      string
	dialect  Dialect
	q        quoting
	keywords map[string]TokenKind

	pos  int
	line int
	col  int
}

func New(src string, dialect Dialect) *Lexer {
	return &Lexer{
		src:      src,
		dialect:  dialect,
		q:        quotingFor(dialect),
		keywords: keywordsFor(dialect),
		line:     1,
		col:      1,
	}
}

// All scans the entire source into a token slice, stopping at (and
// including) TokEOF. The parser also uses this for lookahead buffers.
func (l *Lexer) All() ([]Token, error) {
	var toks []Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, nil
		}
	}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '-' && l.peekAt(1) == '-':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) && !(l.peekByte() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if l.pos < len(l.src) {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) syntaxErr(format string, args ...any) error {
	return errs.At(errs.SyntaxError, errs.Span{Line: l.line, Column: l.col, Length: 1}, format, args...)
}

// Next scans and returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()
	startLine, startCol := l.line, l.col

	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Span: errs.Span{Line: startLine, Column: startCol}}, nil
	}

	c := l.peekByte()

	switch {
	case c == l.q.identQuote:
		return l.lexQuotedIdent(startLine, startCol)
	case c == '\'':
		return l.lexString(startLine, startCol)
	case unicode.IsDigit(rune(c)) || (c == '.' && unicode.IsDigit(rune(l.peekAt(1)))):
		return l.lexNumber(startLine, startCol)
	case isIdentStart(c):
		return l.lexIdentOrKeyword(startLine, startCol)
	case c == '$':
		return l.lexDollarParam(startLine, startCol)
	default:
		return l.lexOperator(startLine, startCol)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentCont(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func (l *Lexer) lexIdentOrKeyword(line, col int) (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	upper := strings.ToUpper(text)
	if kind, ok := l.keywords[upper]; ok {
		return Token{Kind: kind, Text: upper, Span: errs.Span{Line: line, Column: col, Length: len(text)}}, nil
	}
	return Token{Kind: TokIdent, Text: text, Span: errs.Span{Line: line, Column: col, Length: len(text)}}, nil
}

func (l *Lexer) lexQuotedIdent(line, col int) (Token, error) {
	quote := l.advance()
	start := l.pos
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, l.syntaxErr("unterminated quoted identifier")
		}
		c := l.peekByte()
		if c == quote {
			l.advance()
			if l.peekByte() == quote { // doubled-quote escape
				b.WriteByte(quote)
				l.advance()
				continue
			}
			break
		}
		b.WriteByte(c)
		l.advance()
	}
	return Token{Kind: TokQuotedIdent, Text: b.String(), Span: errs.Span{Line: line, Column: col, Length: l.pos - start}}, nil
}

func (l *Lexer) lexString(line, col int) (Token, error) {
	l.advance() // opening '
	start := l.pos
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, l.syntaxErr("unterminated string literal")
		}
		c := l.peekByte()
		if c == '\\' && l.q.backslashEscapes {
			l.advance()
			b.WriteByte(unescape(l.advance()))
			continue
		}
		if c == '\'' {
			l.advance()
			if l.peekByte() == '\'' {
				b.WriteByte('\'')
				l.advance()
				continue
			}
			break
		}
		b.WriteByte(c)
		l.advance()
	}
	return Token{Kind: TokString, Text: b.String(), Span: errs.Span{Line: line, Column: col, Length: l.pos - start}}, nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (l *Lexer) lexNumber(line, col int) (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && unicode.IsDigit(rune(l.peekByte())) {
		l.advance()
	}
	if l.peekByte() == '.' {
		l.advance()
		for l.pos < len(l.src) && unicode.IsDigit(rune(l.peekByte())) {
			l.advance()
		}
	}
	if l.peekByte() == 'e' || l.peekByte() == 'E' {
		l.advance()
		if l.peekByte() == '+' || l.peekByte() == '-' {
			l.advance()
		}
		for l.pos < len(l.src) && unicode.IsDigit(rune(l.peekByte())) {
			l.advance()
		}
	}
	// Numeric literal suffixes vary by dialect (spec.md §4.1); consumed
	// but not yet semantically distinguished beyond the digits scanned.
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	return Token{Kind: TokNumber, Text: text, Span: errs.Span{Line: line, Column: col, Length: len(text)}}, nil
}

func (l *Lexer) lexDollarParam(line, col int) (Token, error) {
	start := l.pos
	l.advance() // $
	for l.pos < len(l.src) && unicode.IsDigit(rune(l.peekByte())) {
		l.advance()
	}
	text := l.src[start:l.pos]
	if len(text) == 1 {
		return Token{}, l.syntaxErr("malformed parameter placeholder")
	}
	return Token{Kind: TokParam, Text: text, Span: errs.Span{Line: line, Column: col, Length: len(text)}}, nil
}

// operators are matched longest-first so that e.g. "->>" never lexes as
// "->" followed by ">".
var multiCharOps = []struct {
	text string
	kind TokenKind
}{
	{"->>", TokArrowArrow},
	{"-|-", TokDashPipeDash},
	{"<=>", TokSimEq},
	{"<->", TokDistance},
	{"<=", TokLe},
	{">=", TokGe},
	{"<>", TokNeq},
	{"!=", TokNeq},
	{"::", TokColonColon},
	{"->", TokArrow},
	{"#>", TokHashArrow},
	{"@>", TokAtArrow},
	{"<@", TokArrowAt},
	{"?|", TokQMarkPipe},
	{"?&", TokQMarkAmp},
	{"||", TokPipePipe},
}

var singleCharOps = map[byte]TokenKind{
	'(': TokLParen, ')': TokRParen, '[': TokLBracket, ']': TokRBracket,
	'{': TokLBrace, '}': TokRBrace, ',': TokComma, '.': TokDot,
	';': TokSemicolon, ':': TokColon, '+': TokPlus, '-': TokMinus,
	'*': TokStar, '/': TokSlash, '%': TokPercent, '=': TokEq,
	'<': TokLt, '>': TokGt, '?': TokQMark,
}

func (l *Lexer) lexOperator(line, col int) (Token, error) {
	rest := l.src[l.pos:]
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.advance()
			}
			return Token{Kind: op.kind, Text: op.text, Span: errs.Span{Line: line, Column: col, Length: len(op.text)}}, nil
		}
	}
	c := l.advance()
	if kind, ok := singleCharOps[c]; ok {
		return Token{Kind: kind, Text: string(c), Span: errs.Span{Line: line, Column: col, Length: 1}}, nil
	}
	r, _ := utf8.DecodeRuneInString(string(c))
	return Token{}, l.syntaxErr("unexpected character %q", r)
}
