package layout

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/shader"
)

func synthesize(t *testing.T, src string) *Layout {
	t.Helper()
	refl, err := shader.Reflect("t.comp", src)
	require.NoError(t, err)
	l, err := Synthesize(refl)
	require.NoError(t, err)
	return l
}

func TestSynthesizeGroupsBySet(t *testing.T) {
	l := synthesize(t, `
layout(local_size_x = 64) in;
layout(set = 2, binding = 1) buffer Out { float v[16]; } out_data;
layout(set = 0, binding = 0, rgba8) uniform image2D img;
layout(set = 2, binding = 0) uniform Params { float gain; vec2 size; } params;
layout(set = 0, binding = 1) uniform texture2D tex;
`)
	assert.Equal(t, shader.WorkgroupShape{X: 64, Y: 1, Z: 1}, l.Workgroup)
	assert.Equal(t, []uint32{0, 2}, l.SetIndices())
	assert.Nil(t, l.Set(1))

	set0 := l.Set(0)
	require.NotNil(t, set0)
	require.Len(t, set0.Bindings, 2)
	assert.Equal(t, "img", set0.Bindings[0].Name)
	assert.Equal(t, KindStorageImage, set0.Bindings[0].Kind)
	assert.Equal(t, "tex", set0.Bindings[1].Name)
	assert.Equal(t, KindSampledImage, set0.Bindings[1].Kind)

	set2 := l.Set(2)
	require.NotNil(t, set2)
	require.Len(t, set2.Bindings, 2)
	// first-seen order, not binding order
	assert.Equal(t, "out_data", set2.Bindings[0].Name)
	assert.Equal(t, KindStorageBuffer, set2.Bindings[0].Kind)
	assert.Equal(t, Size{Bytes: 64, Known: true}, set2.Bindings[0].Size)
	assert.Equal(t, "params", set2.Bindings[1].Name)
	assert.Equal(t, KindUniformBuffer, set2.Bindings[1].Kind)
	assert.Equal(t, Size{Bytes: 12, Known: true}, set2.Bindings[1].Size)

	assert.Len(t, l.Bindings(), len(l.Reflection.Declarations()))
	assert.Nil(t, l.PushConstants)
}

func TestSynthesizePushConstantDefaultsToSetZero(t *testing.T) {
	var logs bytes.Buffer
	core.SetLogOutput(&logs)
	defer core.SetLogOutput(os.Stderr)

	l := synthesize(t, `
layout(set = 1, binding = 0) uniform sampler2D foo;
layout(push_constant) uniform PC { bool is_beat; float now; } pc;
`)
	assert.Equal(t, []uint32{0, 1}, l.SetIndices())
	assert.Contains(t, logs.String(), "t.comp: pc has no set qualifier, assuming set=0")
	assert.NotContains(t, logs.String(), "foo has no set qualifier")

	set0 := l.Set(0)
	require.Len(t, set0.Bindings, 1)
	assert.Equal(t, KindPushConstant, set0.Bindings[0].Kind)
	assert.Empty(t, set0.Descriptors())

	set1 := l.Set(1)
	require.Len(t, set1.Bindings, 1)
	assert.Equal(t, "foo", set1.Bindings[0].Name)
	assert.Equal(t, KindCombinedImageSampler, set1.Bindings[0].Kind)

	require.NotNil(t, l.PushConstants)
	assert.Equal(t, "pc", l.PushConstants.Name)
	assert.Equal(t, Size{Bytes: 8, Known: true}, l.PushConstants.Size)
}

func TestRequireSize(t *testing.T) {
	l := synthesize(t, `
layout(binding = 0) buffer Known { vec4 a; mat3 m; } known;
layout(binding = 1) buffer Runtime { uint count; float v[]; } runtime;
layout(binding = 2) buffer Opaque { Particle p; } opaque;
layout(binding = 3) uniform image2D img;
`)
	size, err := l.RequireSize("known")
	require.NoError(t, err)
	assert.Equal(t, uint32(16+36), size)

	for name, field := range map[string]string{"runtime": "v", "opaque": "p"} {
		size, err := l.RequireSize(name)
		assert.Zero(t, size)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSizeUnknown), "%v", err)
		assert.True(t, errors.Is(err, shader.ErrSizeUnknown), "%v", err)

		var le *Error
		require.True(t, errors.As(err, &le))
		assert.Equal(t, field, le.Field)
		assert.Equal(t, "t.comp", le.Shader)
	}

	_, err = l.RequireSize("img")
	assert.True(t, errors.Is(err, shader.ErrNoBlock))
	_, err = l.RequireSize("missing")
	assert.True(t, errors.Is(err, shader.ErrNoBlock))
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			"duplicate slot",
			"layout(set = 0, binding = 0) uniform image2D a;\nlayout(set = 0, binding = 0) uniform image2D b;",
			ErrDuplicateBinding,
		},
		{
			"two push constant blocks",
			"layout(push_constant) uniform A { float x; } a;\nlayout(push_constant) uniform B { float y; } b;",
			ErrMultiplePushConstants,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refl, err := shader.Reflect("t.comp", tt.src)
			require.NoError(t, err)
			_, err = Synthesize(refl)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}

func TestSameBindingInDifferentSets(t *testing.T) {
	l := synthesize(t, "layout(set = 0, binding = 0) uniform image2D a;\nlayout(set = 1, binding = 0) uniform image2D b;")
	assert.Equal(t, []uint32{0, 1}, l.SetIndices())
}

func TestImageKind(t *testing.T) {
	tests := map[string]Kind{
		"image2D":         KindStorageImage,
		"iimage2D":        KindStorageImage,
		"uimage3D":        KindStorageImage,
		"sampler2D":       KindCombinedImageSampler,
		"isampler2D":      KindCombinedImageSampler,
		"sampler2DShadow": KindCombinedImageSampler,
		"texture2D":       KindSampledImage,
		"utexture2D":      KindSampledImage,
		"sampler":         KindSampler,
		"samplerShadow":   KindSampler,
		"float":           KindUnsupported,
		"int":             KindUnsupported,
		"uint":            KindUnsupported,
		"image":           KindUnsupported,
	}
	for typ, want := range tests {
		assert.Equal(t, want, ImageKind(typ), typ)
	}
}
