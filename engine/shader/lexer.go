package shader

import (
	"fmt"
)

// Lexer tokenizes GLSL source. Comments and preprocessor directives are
// dropped; everything else becomes a token.
type Lexer struct {
	shader string
	source string
	pos    int
	line   int
	column int
	start  int
	// position of the token being scanned
	startLine   int
	startColumn int
	// true until the first non-blank character of a line is seen
	lineStart bool
	tokens    []Token
}

// NewLexer creates a new lexer for the given source. The shader name is only
// used for error reporting.
func NewLexer(shader, source string) *Lexer {
	estTokens := len(source) / 6
	if estTokens < 16 {
		estTokens = 16
	}
	return &Lexer{
		shader:    shader,
		source:    source,
		line:      1,
		column:    1,
		lineStart: true,
		tokens:    make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source, terminated by TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		l.startLine = l.line
		l.startColumn = l.column
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Line:   l.line,
		Column: l.column,
	})
	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	c := l.advance()

	switch c {
	case ' ', '\t', '\r', '\f', '\v':
		return nil
	case '\n':
		l.newLine()
		return nil
	case '#':
		if !l.lineStart {
			return l.errorf("unexpected '#' in the middle of a line")
		}
		l.skipDirective()
		return nil
	case '/':
		if l.match('/') {
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			return nil
		}
		if l.match('*') {
			return l.skipBlockComment()
		}
		l.addToken(TokenOperator)
	case '(':
		l.addToken(TokenLeftParen)
	case ')':
		l.addToken(TokenRightParen)
	case '{':
		l.addToken(TokenLeftBrace)
	case '}':
		l.addToken(TokenRightBrace)
	case '[':
		l.addToken(TokenLeftBracket)
	case ']':
		l.addToken(TokenRightBracket)
	case ',':
		l.addToken(TokenComma)
	case ';':
		l.addToken(TokenSemicolon)
	case '=':
		if l.match('=') {
			l.addToken(TokenOperator)
		} else {
			l.addToken(TokenEqual)
		}
	case '+', '-', '*', '%', '<', '>', '!', '&', '|', '^', '~', '?', ':':
		l.addToken(TokenOperator)
	case '.':
		if isDigit(l.peek()) {
			return l.number()
		}
		l.addToken(TokenOperator)
	default:
		switch {
		case isDigit(c):
			return l.number()
		case isIdentStart(c):
			l.identifier()
		default:
			return l.errorf("unexpected character %q", c)
		}
	}
	l.lineStart = false
	return nil
}

func (l *Lexer) identifier() {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	l.addToken(TokenIdent)
}

// number scans integer and floating point literals including hex, octal,
// exponent and the u/f/lf suffixes.
func (l *Lexer) number() error {
	kind := TokenIntLiteral
	first := l.source[l.start]

	if first == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		if !isHexDigit(l.peek()) {
			return l.errorf("malformed hexadecimal literal")
		}
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		if first == '.' {
			kind = TokenFloatLiteral
		}
		for isDigit(l.peek()) {
			l.advance()
		}
		if l.peek() == '.' {
			kind = TokenFloatLiteral
			l.advance()
			for isDigit(l.peek()) {
				l.advance()
			}
		}
		if l.peek() == 'e' || l.peek() == 'E' {
			kind = TokenFloatLiteral
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			if !isDigit(l.peek()) {
				return l.errorf("malformed exponent")
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	switch l.peek() {
	case 'u', 'U':
		if kind == TokenFloatLiteral {
			return l.errorf("unsigned suffix on float literal")
		}
		l.advance()
	case 'f', 'F':
		kind = TokenFloatLiteral
		l.advance()
	case 'l', 'L':
		l.advance()
		if !l.match('f') && !l.match('F') {
			return l.errorf("malformed double literal suffix")
		}
		kind = TokenFloatLiteral
	}
	if isIdentPart(l.peek()) {
		return l.errorf("malformed numeric literal")
	}
	l.addToken(kind)
	l.lineStart = false
	return nil
}

// skipDirective drops a preprocessor line, honoring backslash continuations.
func (l *Lexer) skipDirective() {
	for !l.isAtEnd() {
		c := l.peek()
		if c == '\\' && l.peekNext() == '\n' {
			l.advance()
			l.advance()
			l.newLine()
			continue
		}
		if c == '\n' {
			return
		}
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() error {
	for !l.isAtEnd() {
		c := l.advance()
		if c == '\n' {
			// a block comment does not start a new logical line for directives
			l.line++
			l.column = 1
			continue
		}
		if c == '*' && l.peek() == '/' {
			l.advance()
			return nil
		}
	}
	return l.errorf("unterminated block comment")
}

func (l *Lexer) newLine() {
	l.line++
	l.column = 1
	l.lineStart = true
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Text:   l.source[l.start:l.pos],
		Line:   l.startLine,
		Column: l.startColumn,
	})
}

func (l *Lexer) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Kind:   ErrKindSyntax,
		Shader: l.shader,
		Line:   l.startLine,
		Column: l.startColumn,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) advance() byte {
	c := l.source[l.pos]
	l.pos++
	l.column++
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.pos++
	l.column++
	return true
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
