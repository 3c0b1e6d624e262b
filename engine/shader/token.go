package shader

import "fmt"

// TokenKind is the kind of a lexical token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenIntLiteral
	TokenFloatLiteral
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenLeftBracket
	TokenRightBracket
	TokenComma
	TokenSemicolon
	TokenEqual
	// TokenOperator covers every other punctuation character. The reflector
	// never interprets operators, it only needs to skip over them inside
	// initializers and function bodies.
	TokenOperator
)

var tokenNames = [...]string{
	TokenEOF:          "EOF",
	TokenIdent:        "identifier",
	TokenIntLiteral:   "integer literal",
	TokenFloatLiteral: "float literal",
	TokenLeftParen:    "'('",
	TokenRightParen:   "')'",
	TokenLeftBrace:    "'{'",
	TokenRightBrace:   "'}'",
	TokenLeftBracket:  "'['",
	TokenRightBracket: "']'",
	TokenComma:        "','",
	TokenSemicolon:    "';'",
	TokenEqual:        "'='",
	TokenOperator:     "operator",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is a lexical token with its source position.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

func (t Token) Pos() Position {
	return Position{Line: t.Line, Column: t.Column}
}

func (t Token) String() string {
	if t.Text == "" {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Position is a 1-based line/column location in shader source.
type Position struct {
	Line   int
	Column int
}
