package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeclarationShapes(t *testing.T) {
	src := `
precision highp float;
layout(local_size_x = 8) in;
layout(binding = 0) uniform image2D img;
layout(binding = 1) buffer Data { float v[]; } data;
struct Light { vec3 pos; };
const float K[2] = float[2](1.0, 2.0), J = 3.0;
float f(float x);
void main() { if (true) { img; } }
`
	decls, err := Parse("t.comp", src)
	require.NoError(t, err)
	require.Len(t, decls, 8)

	assert.IsType(t, &SkippedDecl{}, decls[0])
	assert.IsType(t, &GlobalInDecl{}, decls[1])
	assert.IsType(t, &VariableDecl{}, decls[2])
	assert.IsType(t, &BlockDecl{}, decls[3])
	assert.IsType(t, &SkippedDecl{}, decls[4])
	assert.IsType(t, &VariableDecl{}, decls[5])
	assert.IsType(t, &SkippedDecl{}, decls[6])
	assert.IsType(t, &SkippedDecl{}, decls[7])

	g := decls[1].(*GlobalInDecl)
	require.Len(t, g.Qualifiers.Layout, 1)
	assert.Equal(t, "local_size_x", g.Qualifiers.Layout[0].Name)
	assert.Equal(t, int64(8), g.Qualifiers.Layout[0].Value.Int)
	assert.Equal(t, 3, g.At.Line)

	blk := decls[3].(*BlockDecl)
	assert.Equal(t, "Data", blk.Name)
	assert.Equal(t, "data", blk.Instance)
	require.Len(t, blk.Fields, 1)
	require.Len(t, blk.Fields[0].Declarators[0].Array, 1)
	assert.False(t, blk.Fields[0].Declarators[0].Array[0].Sized)

	c := decls[5].(*VariableDecl)
	require.Len(t, c.Declarators, 2)
	assert.True(t, c.Declarators[0].HasInit)
	assert.Equal(t, "J", c.Declarators[1].Name)
}

func TestParseLayoutValueKeepsExpressionText(t *testing.T) {
	decls, err := Parse("t.comp", "layout(local_size_x = N * 2) in;")
	require.NoError(t, err)
	g := decls[0].(*GlobalInDecl)
	v := g.Qualifiers.Layout[0].Value
	assert.False(t, v.IsInt)
	assert.Equal(t, "N * 2", v.Text)
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"uniform float x",
		"layout(binding = 0 uniform image2D img;",
		"layout(binding = 0) uniform B { float x; ",
		"layout(binding = 0) uniform B { float x = 1.0; } b;",
		"void main() {",
		"float[4;",
	} {
		_, err := Parse("t.comp", src)
		assert.True(t, IsKind(err, ErrKindSyntax), "source %q: %v", src, err)
	}
}
