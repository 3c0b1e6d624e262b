package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerTokens(t *testing.T) {
	tokens, err := NewLexer("t.comp", "layout(local_size_x = 0x10u) in;").Tokenize()
	require.NoError(t, err)

	kinds := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenLeftParen, TokenIdent, TokenEqual, TokenIntLiteral,
		TokenRightParen, TokenIdent, TokenSemicolon, TokenEOF,
	}, kinds)
	assert.Equal(t, "0x10u", tokens[4].Text)
}

func TestLexerSkipsCommentsAndDirectives(t *testing.T) {
	src := "#version 450\n" +
		"#define N \\\n  16\n" +
		"// line comment\n" +
		"/* block\n comment */ float x;\n"
	tokens, err := NewLexer("t.comp", src).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, "float", tokens[0].Text)
	assert.Equal(t, 6, tokens[0].Line)
	assert.Equal(t, 13, tokens[0].Column)
	assert.Equal(t, "x", tokens[1].Text)
	assert.Equal(t, TokenSemicolon, tokens[2].Kind)
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		src  string
		kind TokenKind
	}{
		{"42", TokenIntLiteral},
		{"42u", TokenIntLiteral},
		{"010", TokenIntLiteral},
		{"1.5", TokenFloatLiteral},
		{".5", TokenFloatLiteral},
		{"1e3", TokenFloatLiteral},
		{"2.0f", TokenFloatLiteral},
		{"2.0lf", TokenFloatLiteral},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := NewLexer("t.comp", tt.src).Tokenize()
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, tt.kind, tokens[0].Kind)
			assert.Equal(t, tt.src, tokens[0].Text)
		})
	}
}

func TestLexerErrors(t *testing.T) {
	for _, src := range []string{
		"/* never closed",
		"float x; # define",
		"float x = 1.0u;",
		"float x = 12abc;",
		"float $x;",
	} {
		_, err := NewLexer("t.comp", src).Tokenize()
		assert.True(t, IsKind(err, ErrKindSyntax), "source %q: %v", src, err)
	}
}
