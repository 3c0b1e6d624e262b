package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const visualizerSource = `#version 450
#extension GL_GOOGLE_include_directive : enable
precision highp float;

layout(local_size_x = 16, local_size_y = 16) in;

/* output image and its previous frame */
layout(binding = 0, set = 0, rgba32f) uniform writeonly image2D out_img;
layout(binding = 1, set = 0) uniform sampler2D out_img_prev;

layout(std430, binding = 0, set = 2) readonly buffer DFT { float mags[]; } dft;
layout(std140, binding = 1, set = 2) uniform Params {
    vec4 color;
    mat4 xf;
    float gain;
} params;

layout(push_constant) uniform PC {
    bool is_beat;
    float now;
} pc;

const float PI = 3.14159;
struct Ray { vec3 o; vec3 d; };

float wave(float x) { return sin(x * PI); }

void main() {
    ivec2 p = ivec2(gl_GlobalInvocationID.xy);
    imageStore(out_img, p, vec4(wave(pc.now)));
}
`

func TestReflectVisualizer(t *testing.T) {
	r, err := Reflect("vis.comp", visualizerSource)
	require.NoError(t, err)

	assert.True(t, r.HasWorkgroup)
	assert.Equal(t, WorkgroupShape{X: 16, Y: 16, Z: 1}, r.Workgroup)

	require.Len(t, r.Images, 2)
	img := r.Images[0]
	assert.Equal(t, "out_img", img.Name)
	assert.Equal(t, "image2D", img.Type)
	assert.Equal(t, "rgba32f", img.Format)
	assert.Equal(t, []string{"writeonly"}, img.Memory)
	assert.Equal(t, Location{Binding: 0, HasBinding: true, Set: 0, HasSet: true}, img.Location)
	assert.Equal(t, 8, img.Line)

	prev, err := r.Image("out_img_prev")
	require.NoError(t, err)
	assert.Equal(t, "sampler2D", prev.Type)
	assert.Equal(t, uint32(1), prev.Binding)

	require.Len(t, r.Blocks, 3)

	dft, err := r.Block("dft")
	require.NoError(t, err)
	assert.Equal(t, StorageBuffer, dft.Storage)
	assert.Equal(t, []string{"std430"}, dft.Qualifiers)
	assert.Equal(t, []string{"readonly"}, dft.Memory)
	assert.Equal(t, uint32(2), dft.ResolvedSet())
	_, known := dft.ByteSize()
	assert.False(t, known, "runtime sized array has no static size")

	params, err := r.Block("params")
	require.NoError(t, err)
	assert.Equal(t, StorageUniform, params.Storage)
	size, known := params.ByteSize()
	assert.True(t, known)
	assert.Equal(t, uint32(16+64+4), size)

	pc := r.PushConstants()
	require.NotNil(t, pc)
	assert.Equal(t, "pc", pc.Instance)
	assert.Equal(t, StoragePushConstant, pc.Storage)
	assert.False(t, pc.HasSet)
	assert.Equal(t, uint32(0), pc.ResolvedSet())

	off, sz, err := pc.FieldOffset("now")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), off)
	assert.Equal(t, uint32(4), sz)
}

func TestReflectDefaultWorkgroup(t *testing.T) {
	r, err := Reflect("t.comp", "layout(binding = 0) uniform image2D img;\nvoid main() {}\n")
	require.NoError(t, err)
	assert.False(t, r.HasWorkgroup)
	assert.Equal(t, WorkgroupShape{X: 1, Y: 1, Z: 1}, r.Workgroup)
}

func TestReflectLookupErrors(t *testing.T) {
	r, err := Reflect("t.comp", "layout(binding = 0) uniform B { float x; };")
	require.NoError(t, err)

	_, err = r.Image("missing")
	assert.True(t, errors.Is(err, ErrNoVariable))

	// blocks without an instance name are reflected but not addressable
	require.Len(t, r.Blocks, 1)
	_, err = r.Block("B")
	assert.True(t, errors.Is(err, ErrNoBlock))
}

func TestReflectExplicitOffsets(t *testing.T) {
	src := `layout(push_constant) uniform P {
    float a;
    layout(offset = 16) vec4 b;
    float c;
} p;`
	r, err := Reflect("t.comp", src)
	require.NoError(t, err)
	pc := r.PushConstants()
	require.NotNil(t, pc)

	layout := pc.Layout()
	require.Len(t, layout, 3)
	assert.Equal(t, uint32(0), layout[0].Offset)
	assert.Equal(t, uint32(16), layout[1].Offset)
	assert.Equal(t, uint32(32), layout[2].Offset)

	size, known := pc.ByteSize()
	assert.True(t, known)
	assert.Equal(t, uint32(24), size, "offsets do not contribute to the block size")

	extent, known := pc.Extent()
	assert.True(t, known)
	assert.Equal(t, uint32(36), extent)
}

func TestReflectUnknownFieldSize(t *testing.T) {
	src := `layout(binding = 0) buffer B { Ray r; float after; } b;`
	r, err := Reflect("t.comp", src)
	require.NoError(t, err)

	b, err := r.Block("b")
	require.NoError(t, err)
	_, known := b.ByteSize()
	assert.False(t, known)

	_, _, err = b.FieldOffset("after")
	assert.True(t, errors.Is(err, ErrSizeUnknown))
}

func TestReflectErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"duplicate workgroup", "layout(local_size_x = 8) in;\nlayout(local_size_y = 8) in;", ErrKindDuplicateWorkgroup},
		{"unknown local size id", "layout(local_size_w = 8) in;", ErrKindLayoutIdentifier},
		{"zero local size", "layout(local_size_x = 0) in;", ErrKindLayoutValue},
		{"non constant local size", "layout(local_size_x = N) in;", ErrKindLayoutValue},
		{"float local size", "layout(local_size_x = 1.5) in;", ErrKindLayoutValue},
		{"global out", "layout(local_size_x = 8) out;", ErrKindGlobalQualifier},
		{"global with names", "invariant gl_Position;", ErrKindGlobalQualifier},
		{"input variable", "in vec3 pos;", ErrKindStorageQualifier},
		{"shared variable", "shared float tile[64];", ErrKindStorageQualifier},
		{"unqualified global", "float g;", ErrKindMissingQualifier},
		{"multiple declarators", "uniform float a, b;", ErrKindMultipleDeclarators},
		{"arrayed sampler", "uniform sampler2D tex[4];", ErrKindArraySpecifier},
		{"initialized uniform", "uniform float g = 1.0;", ErrKindInitializer},
		{"unknown layout id", "layout(binding = 0, foo) uniform image2D img;", ErrKindLayoutIdentifier},
		{"binding without value", "layout(binding) uniform image2D img;", ErrKindLayoutValue},
		{"negative binding", "layout(binding = -1) uniform image2D img;", ErrKindLayoutValue},
		{"interpolation qualifier", "flat uniform float x;", ErrKindUnsupportedQualifier},
		{"field memory qualifier", "layout(binding = 0) uniform B { readonly float x; } b;", ErrKindFieldQualifier},
		{"field layout id", "layout(binding = 0) buffer B { layout(align = 16) float x; } b;", ErrKindLayoutIdentifier},
		{"arrayed block", "layout(binding = 0) uniform B { float x; } b[2];", ErrKindArrayedBlock},
		{"push constant buffer", "layout(push_constant) buffer P { float x; } p;", ErrKindStorageQualifier},
		{"block without storage", "B { float x; } b;", ErrKindMissingQualifier},
		{"output block", "out B { float x; } b;", ErrKindStorageQualifier},
		{"zero sized field", "layout(binding = 0) buffer B { float x[0]; } b;", ErrKindArraySpecifier},
		{"syntax", "uniform image2D img", ErrKindSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reflect("bad.comp", tt.src)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "%v", err)
			assert.Equal(t, tt.kind, pe.Kind, "%v", err)
			assert.Equal(t, "bad.comp", pe.Shader)
		})
	}
}

func TestReflectErrorPosition(t *testing.T) {
	_, err := Reflect("bad.comp", "layout(local_size_x = 8) in;\n\n  in vec3 pos;\n")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, 3, pe.Column)
	assert.Contains(t, pe.Error(), "bad.comp:3:3")
}

func TestReflectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vis.comp")
	require.NoError(t, os.WriteFile(path, []byte(visualizerSource), 0o644))

	r, err := ReflectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "vis.comp", r.Shader)
	decls := r.Declarations()
	require.Len(t, decls, 5)
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.DeclName()
	}
	assert.Equal(t, []string{"out_img", "out_img_prev", "dft", "params", "pc"}, names)

	_, err = ReflectFile(filepath.Join(t.TempDir(), "missing.comp"))
	assert.Error(t, err)
}

func TestShippedShadersReflect(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "shaders", "*.comp"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		refl, err := ReflectFile(path)
		require.NoError(t, err, path)
		assert.True(t, refl.HasWorkgroup, path)
		assert.NotEmpty(t, refl.Images, path)
		assert.NotNil(t, refl.PushConstants(), path)
	}
}
