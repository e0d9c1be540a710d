package token

import "fmt"

type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Float
	String

	// keywords
	If
	Else
	While
	Do
	For
	Repeat
	Switch
	Case
	Default
	Break
	Continue
	Try
	Catch
	Finally
	Throw
	Return
	Extern
	Public
	True
	False
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeVoid

	// operators and punctuation
	LParen
	RParen
	LBrace
	RBrace
	Semicolon
	Comma
	Colon
	Question
	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	Plus
	Minus
	Star
	Slash
	Percent
	Inc
	Dec
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	AndAnd
	OrOr
	Not
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Pow
)

var kindNames = map[Kind]string{
	EOF:        "end of file",
	Ident:      "identifier",
	Int:        "integer",
	Float:      "float",
	String:     "string",
	If:         "if",
	Else:       "else",
	While:      "while",
	Do:         "do",
	For:        "for",
	Repeat:     "repeat",
	Switch:     "switch",
	Case:       "case",
	Default:    "default",
	Break:      "break",
	Continue:   "continue",
	Try:        "try",
	Catch:      "catch",
	Finally:    "finally",
	Throw:      "throw",
	Return:     "return",
	Extern:     "extern",
	Public:     "public",
	True:       "true",
	False:      "false",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeBool:   "bool",
	TypeString: "string",
	TypeVoid:   "void",
	LParen:     "(",
	RParen:     ")",
	LBrace:     "{",
	RBrace:     "}",
	Semicolon:  ";",
	Comma:      ",",
	Colon:      ":",
	Question:   "?",
	Assign:     "=",
	AddAssign:  "+=",
	SubAssign:  "-=",
	MulAssign:  "*=",
	DivAssign:  "/=",
	ModAssign:  "%=",
	Plus:       "+",
	Minus:      "-",
	Star:       "*",
	Slash:      "/",
	Percent:    "%",
	Inc:        "++",
	Dec:        "--",
	Eq:         "==",
	Ne:         "!=",
	Lt:         "<",
	Le:         "<=",
	Gt:         ">",
	Ge:         ">=",
	AndAnd:     "&&",
	OrOr:       "||",
	Not:        "!",
	Amp:        "&",
	Pipe:       "|",
	Caret:      "^",
	Tilde:      "~",
	Shl:        "<<",
	Shr:        ">>",
	Pow:        "**",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"if":       If,
	"else":     Else,
	"while":    While,
	"do":       Do,
	"for":      For,
	"repeat":   Repeat,
	"switch":   Switch,
	"case":     Case,
	"default":  Default,
	"break":    Break,
	"continue": Continue,
	"try":      Try,
	"catch":    Catch,
	"finally":  Finally,
	"throw":    Throw,
	"return":   Return,
	"extern":   Extern,
	"public":   Public,
	"true":     True,
	"false":    False,
	"int":      TypeInt,
	"float":    TypeFloat,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"string":   TypeString,
	"void":     TypeVoid,
}

// IsKeyword reports whether s is reserved and cannot name a variable or function.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// Position is a location in source text. Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Kind Kind
	Text string
	Pos  Position
	End  int // offset just past the last byte
}

func (t Token) String() string {
	if t.Text == "" {
		return t.Kind.String()
	}
	return t.Text
}

// Start returns the offset of the first byte of the token.
func (t Token) Start() int {
	return t.Pos.Offset
}
