package token

import (
	"fmt"
	"strings"
)

// LexError is returned for input the lexer cannot turn into tokens.
type LexError struct {
	Pos Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

type lexer struct {
	src    string
	offset int
	line   int
	col    int
	out    []Token
}

// Lex splits src into tokens. The result always ends with an EOF token.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	for {
		if err := l.skipSpace(); err != nil {
			return nil, err
		}
		if l.offset >= len(l.src) {
			l.out = append(l.out, Token{Kind: EOF, Pos: l.pos(), End: l.offset})
			return l.out, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) pos() Position {
	return Position{Offset: l.offset, Line: l.line, Column: l.col}
}

func (l *lexer) peek(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *lexer) advance() byte {
	c := l.src[l.offset]
	l.offset++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpace() error {
	for l.offset < len(l.src) {
		c := l.peek(0)
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peek(1) == '/':
			for l.offset < len(l.src) && l.peek(0) != '\n' {
				l.advance()
			}
		case c == '/' && l.peek(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			for {
				if l.offset >= len(l.src) {
					return &LexError{Pos: start, Msg: "unterminated comment"}
				}
				if l.peek(0) == '*' && l.peek(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *lexer) emit(k Kind, text string, start Position) {
	l.out = append(l.out, Token{Kind: k, Text: text, Pos: start, End: l.offset})
}

// Longest operators first so that "<<=" never splits badly.
var operators = []struct {
	text string
	kind Kind
}{
	{"<<", Shl}, {">>", Shr},
	{"++", Inc}, {"--", Dec}, {"**", Pow},
	{"+=", AddAssign}, {"-=", SubAssign}, {"*=", MulAssign}, {"/=", DivAssign}, {"%=", ModAssign},
	{"==", Eq}, {"!=", Ne}, {"<=", Le}, {">=", Ge},
	{"&&", AndAnd}, {"||", OrOr},
	{"(", LParen}, {")", RParen}, {"{", LBrace}, {"}", RBrace},
	{";", Semicolon}, {",", Comma}, {":", Colon}, {"?", Question},
	{"=", Assign}, {"+", Plus}, {"-", Minus}, {"*", Star}, {"/", Slash}, {"%", Percent},
	{"<", Lt}, {">", Gt}, {"!", Not}, {"&", Amp}, {"|", Pipe}, {"^", Caret}, {"~", Tilde},
}

func (l *lexer) next() error {
	start := l.pos()
	c := l.peek(0)
	switch {
	case isLetter(c):
		for l.offset < len(l.src) && (isLetter(l.peek(0)) || isDigit(l.peek(0))) {
			l.advance()
		}
		word := l.src[start.Offset:l.offset]
		if k, ok := keywords[word]; ok {
			l.emit(k, word, start)
		} else {
			l.emit(Ident, word, start)
		}
		return nil
	case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
		return l.number(start)
	case c == '"':
		return l.str(start)
	}
	rest := l.src[l.offset:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.advance()
			}
			l.emit(op.kind, op.text, start)
			return nil
		}
	}
	return &LexError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func (l *lexer) number(start Position) error {
	if l.peek(0) == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.advance()
		l.advance()
		if !isHex(l.peek(0)) {
			return &LexError{Pos: start, Msg: "malformed hex literal"}
		}
		for isHex(l.peek(0)) {
			l.advance()
		}
		l.emit(Int, l.src[start.Offset:l.offset], start)
		return nil
	}
	if l.peek(0) == '0' && (l.peek(1) == 'b' || l.peek(1) == 'B') {
		l.advance()
		l.advance()
		if l.peek(0) != '0' && l.peek(0) != '1' {
			return &LexError{Pos: start, Msg: "malformed binary literal"}
		}
		for l.peek(0) == '0' || l.peek(0) == '1' {
			l.advance()
		}
		l.emit(Int, l.src[start.Offset:l.offset], start)
		return nil
	}
	kind := Int
	for isDigit(l.peek(0)) {
		l.advance()
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) || l.peek(0) == '.' && start.Offset == l.offset {
		kind = Float
		l.advance()
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	if l.peek(0) == 'e' || l.peek(0) == 'E' {
		save := *l
		l.advance()
		if l.peek(0) == '+' || l.peek(0) == '-' {
			l.advance()
		}
		if !isDigit(l.peek(0)) {
			*l = save
		} else {
			kind = Float
			for isDigit(l.peek(0)) {
				l.advance()
			}
		}
	}
	l.emit(kind, l.src[start.Offset:l.offset], start)
	return nil
}

func (l *lexer) str(start Position) error {
	l.advance()
	var sb strings.Builder
	for {
		if l.offset >= len(l.src) || l.peek(0) == '\n' {
			return &LexError{Pos: start, Msg: "unterminated string"}
		}
		c := l.advance()
		if c == '"' {
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if l.offset >= len(l.src) {
			return &LexError{Pos: start, Msg: "unterminated string"}
		}
		switch e := l.advance(); e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '"', '\'':
			sb.WriteByte(e)
		default:
			return &LexError{Pos: l.pos(), Msg: fmt.Sprintf("unknown escape \\%c", e)}
		}
	}
	l.emit(String, sb.String(), start)
	return nil
}
