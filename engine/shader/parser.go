package shader

import (
	"strconv"
	"strings"
)

var (
	storageQualifiers = map[string]bool{
		"const": true, "in": true, "out": true, "inout": true, "uniform": true,
		"buffer": true, "shared": true, "attribute": true, "varying": true,
	}
	memoryQualifiers = map[string]bool{
		"coherent": true, "volatile": true, "restrict": true,
		"readonly": true, "writeonly": true,
	}
	precisionQualifiers = map[string]bool{
		"highp": true, "mediump": true, "lowp": true,
	}
	otherQualifiers = map[string]bool{
		"flat": true, "smooth": true, "noperspective": true, "invariant": true,
		"precise": true, "centroid": true, "patch": true, "sample": true,
		"subroutine": true,
	}
)

// Parser builds the top-level declaration list of a GLSL translation unit.
// Function bodies and initializers are skipped by bracket matching, never
// interpreted.
type Parser struct {
	shader  string
	tokens  []Token
	current int
}

// NewParser creates a parser over the tokens produced by Lexer.Tokenize.
func NewParser(shader string, tokens []Token) *Parser {
	return &Parser{shader: shader, tokens: tokens}
}

// Parse tokenizes and parses source in one step.
func Parse(shader, source string) ([]Decl, error) {
	tokens, err := NewLexer(shader, source).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(shader, tokens).Parse()
}

// Parse returns every top-level declaration in source order.
func (p *Parser) Parse() ([]Decl, error) {
	var decls []Decl
	for !p.isAtEnd() {
		if p.match(TokenSemicolon) {
			continue
		}
		decl, err := p.declaration()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func (p *Parser) declaration() (Decl, error) {
	start := p.peek()

	if p.checkWord("precision") {
		if err := p.skipStatement(); err != nil {
			return nil, err
		}
		return &SkippedDecl{What: "precision", At: start.Pos()}, nil
	}

	quals, err := p.qualifiers()
	if err != nil {
		return nil, err
	}

	if p.match(TokenSemicolon) {
		return &GlobalInDecl{Qualifiers: quals, At: start.Pos()}, nil
	}

	if p.checkWord("struct") {
		return p.structDecl(quals, start)
	}

	name, err := p.expect(TokenIdent, "type or identifier")
	if err != nil {
		return nil, err
	}

	if p.check(TokenLeftBrace) {
		return p.block(quals, name, start)
	}

	if !quals.Empty() && (p.check(TokenSemicolon) || p.check(TokenComma)) {
		names := []Token{name}
		for p.match(TokenComma) {
			n, err := p.expect(TokenIdent, "identifier")
			if err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		if _, err := p.expect(TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
		return &GlobalInDecl{Qualifiers: quals, Names: names, At: start.Pos()}, nil
	}

	typeArray, err := p.arrayDims()
	if err != nil {
		return nil, err
	}

	first, err := p.expect(TokenIdent, "identifier")
	if err != nil {
		return nil, err
	}

	if p.check(TokenLeftParen) {
		if err := p.skipFunction(); err != nil {
			return nil, err
		}
		return &SkippedDecl{What: "function " + first.Text, At: start.Pos()}, nil
	}

	decls, err := p.declarators(first, true)
	if err != nil {
		return nil, err
	}
	return &VariableDecl{
		Qualifiers:  quals,
		Type:        name.Text,
		TypeArray:   typeArray,
		Declarators: decls,
		At:          start.Pos(),
	}, nil
}

// structDecl skips a struct type definition. A definition that also declares
// variables is returned as a VariableDecl so the reflector can reject it.
func (p *Parser) structDecl(quals Qualifiers, start Token) (Decl, error) {
	p.advance()
	name := "struct"
	if p.check(TokenIdent) {
		name = "struct " + p.advance().Text
	}
	if !p.check(TokenLeftBrace) {
		return nil, p.errorf(p.peek(), "expected '{' after %s, found %s", name, p.peek())
	}
	if err := p.skipBalanced(TokenLeftBrace, TokenRightBrace); err != nil {
		return nil, err
	}
	if p.match(TokenSemicolon) {
		return &SkippedDecl{What: name, At: start.Pos()}, nil
	}
	first, err := p.expect(TokenIdent, "identifier")
	if err != nil {
		return nil, err
	}
	decls, err := p.declarators(first, true)
	if err != nil {
		return nil, err
	}
	return &VariableDecl{Qualifiers: quals, Type: name, Declarators: decls, At: start.Pos()}, nil
}

func (p *Parser) block(quals Qualifiers, name Token, start Token) (Decl, error) {
	p.advance() // {

	var fields []FieldDecl
	for !p.check(TokenRightBrace) {
		if p.isAtEnd() {
			return nil, p.errorf(p.peek(), "unterminated block %s", name.Text)
		}
		field, err := p.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	p.advance() // }

	blk := &BlockDecl{Qualifiers: quals, Name: name.Text, Fields: fields, At: start.Pos()}
	if p.check(TokenIdent) {
		blk.Instance = p.advance().Text
		dims, err := p.arrayDims()
		if err != nil {
			return nil, err
		}
		blk.InstanceArray = dims
	}
	if _, err := p.expect(TokenSemicolon, "';' after block"); err != nil {
		return nil, err
	}
	return blk, nil
}

func (p *Parser) field() (FieldDecl, error) {
	start := p.peek()
	quals, err := p.qualifiers()
	if err != nil {
		return FieldDecl{}, err
	}
	typ, err := p.expect(TokenIdent, "field type")
	if err != nil {
		return FieldDecl{}, err
	}
	typeArray, err := p.arrayDims()
	if err != nil {
		return FieldDecl{}, err
	}
	first, err := p.expect(TokenIdent, "field name")
	if err != nil {
		return FieldDecl{}, err
	}
	decls, err := p.declarators(first, false)
	if err != nil {
		return FieldDecl{}, err
	}
	return FieldDecl{
		Qualifiers:  quals,
		Type:        typ.Text,
		TypeArray:   typeArray,
		Declarators: decls,
		At:          start.Pos(),
	}, nil
}

// declarators parses `name[dims] [= init] (, name[dims] [= init])* ;` with
// the first name already consumed.
func (p *Parser) declarators(first Token, allowInit bool) ([]Declarator, error) {
	var out []Declarator
	name := first
	for {
		dims, err := p.arrayDims()
		if err != nil {
			return nil, err
		}
		d := Declarator{Name: name.Text, Array: dims, At: name.Pos()}
		if p.check(TokenEqual) {
			if !allowInit {
				return nil, p.errorf(p.peek(), "initializer not allowed on block member %s", name.Text)
			}
			p.advance()
			if err := p.skipInitializer(); err != nil {
				return nil, err
			}
			d.HasInit = true
		}
		out = append(out, d)

		if p.match(TokenSemicolon) {
			return out, nil
		}
		if _, err := p.expect(TokenComma, "',' or ';'"); err != nil {
			return nil, err
		}
		if name, err = p.expect(TokenIdent, "identifier"); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) qualifiers() (Qualifiers, error) {
	var q Qualifiers
	for p.check(TokenIdent) {
		tok := p.peek()
		switch {
		case tok.Text == "layout":
			p.advance()
			entries, err := p.layout()
			if err != nil {
				return q, err
			}
			q.Layout = append(q.Layout, entries...)
		case storageQualifiers[tok.Text]:
			q.Storage = append(q.Storage, p.advance())
		case memoryQualifiers[tok.Text]:
			q.Memory = append(q.Memory, p.advance())
		case precisionQualifiers[tok.Text]:
			q.Precision = append(q.Precision, p.advance())
		case otherQualifiers[tok.Text]:
			q.Other = append(q.Other, p.advance())
		default:
			return q, nil
		}
	}
	return q, nil
}

func (p *Parser) layout() ([]LayoutQualifier, error) {
	if _, err := p.expect(TokenLeftParen, "'(' after layout"); err != nil {
		return nil, err
	}
	var out []LayoutQualifier
	for {
		id, err := p.expect(TokenIdent, "layout identifier")
		if err != nil {
			return nil, err
		}
		lq := LayoutQualifier{Name: id.Text, At: id.Pos()}
		if p.match(TokenEqual) {
			v, err := p.layoutValue()
			if err != nil {
				return nil, err
			}
			lq.Value = v
		}
		out = append(out, lq)

		if p.match(TokenRightParen) {
			return out, nil
		}
		if _, err := p.expect(TokenComma, "',' or ')' in layout"); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) layoutValue() (*LayoutValue, error) {
	start := p.current
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenEOF:
			return nil, p.errorf(tok, "unterminated layout qualifier")
		case TokenLeftParen:
			depth++
		case TokenRightParen:
			if depth == 0 {
				return p.toLayoutValue(p.tokens[start:p.current])
			}
			depth--
		case TokenComma:
			if depth == 0 {
				return p.toLayoutValue(p.tokens[start:p.current])
			}
		}
		p.advance()
	}
}

func (p *Parser) toLayoutValue(toks []Token) (*LayoutValue, error) {
	if len(toks) == 0 {
		return nil, p.errorf(p.peek(), "missing layout value")
	}
	texts := make([]string, len(toks))
	for i, t := range toks {
		texts[i] = t.Text
	}
	v := &LayoutValue{Text: strings.Join(texts, " ")}
	if len(toks) == 1 && toks[0].Kind == TokenIntLiteral {
		if n, ok := parseInt(toks[0].Text); ok {
			v.Int = n
			v.IsInt = true
		}
	}
	return v, nil
}

func (p *Parser) arrayDims() ([]ArrayDim, error) {
	var dims []ArrayDim
	for p.check(TokenLeftBracket) {
		open := p.advance()
		if p.match(TokenRightBracket) {
			dims = append(dims, ArrayDim{Text: "[]"})
			continue
		}
		start := p.current
		depth := 0
		for {
			tok := p.peek()
			if tok.Kind == TokenEOF {
				return nil, p.errorf(open, "unterminated array specifier")
			}
			if tok.Kind == TokenLeftBracket {
				depth++
			}
			if tok.Kind == TokenRightBracket {
				if depth == 0 {
					break
				}
				depth--
			}
			p.advance()
		}
		inner := p.tokens[start:p.current]
		p.advance() // ]

		dim := ArrayDim{}
		texts := make([]string, len(inner))
		for i, t := range inner {
			texts[i] = t.Text
		}
		dim.Text = "[" + strings.Join(texts, " ") + "]"
		if len(inner) == 1 && inner[0].Kind == TokenIntLiteral {
			if n, ok := parseInt(inner[0].Text); ok {
				dim.Size = n
				dim.Sized = true
			}
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

// skipFunction skips a prototype or a definition, the name already consumed.
func (p *Parser) skipFunction() error {
	if err := p.skipBalanced(TokenLeftParen, TokenRightParen); err != nil {
		return err
	}
	if p.match(TokenSemicolon) {
		return nil
	}
	if !p.check(TokenLeftBrace) {
		return p.errorf(p.peek(), "expected function body or ';', found %s", p.peek())
	}
	return p.skipBalanced(TokenLeftBrace, TokenRightBrace)
}

// skipInitializer stops before the ',' or ';' that ends the initializer.
func (p *Parser) skipInitializer() error {
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenEOF:
			return p.errorf(tok, "unterminated initializer")
		case TokenLeftParen, TokenLeftBrace, TokenLeftBracket:
			depth++
		case TokenRightParen, TokenRightBrace, TokenRightBracket:
			depth--
			if depth < 0 {
				return p.errorf(tok, "unbalanced %s in initializer", tok.Kind)
			}
		case TokenComma, TokenSemicolon:
			if depth == 0 {
				return nil
			}
		}
		p.advance()
	}
}

func (p *Parser) skipStatement() error {
	for !p.check(TokenSemicolon) {
		if p.isAtEnd() {
			return p.errorf(p.peek(), "expected ';'")
		}
		p.advance()
	}
	p.advance()
	return nil
}

// skipBalanced consumes an open token and everything up to its match.
func (p *Parser) skipBalanced(open, close TokenKind) error {
	first := p.advance()
	depth := 1
	for depth > 0 {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			return p.errorf(first, "unmatched %s", open)
		}
		switch tok.Kind {
		case open:
			depth++
		case close:
			depth--
		}
		p.advance()
	}
	return nil
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return Token{}, p.errorf(p.peek(), "expected %s, found %s", what, p.peek())
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return newError(ErrKindSyntax, p.shader, tok.Pos(), format, args...)
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) checkWord(word string) bool {
	t := p.peek()
	return t.Kind == TokenIdent && t.Text == word
}

func (p *Parser) advance() Token {
	t := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return t
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

// parseInt parses a GLSL integer literal, dropping the unsigned suffix.
func parseInt(text string) (int64, bool) {
	text = strings.TrimRight(text, "uU")
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
