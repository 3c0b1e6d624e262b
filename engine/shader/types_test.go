package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeSize(t *testing.T) {
	tests := []struct {
		tag   string
		size  uint32
		known bool
	}{
		{"bool", 4, true},
		{"int", 4, true},
		{"uint", 4, true},
		{"float", 4, true},
		{"double", 8, true},
		{"vec2", 8, true},
		{"vec3", 12, true},
		{"vec4", 16, true},
		{"ivec3", 12, true},
		{"uvec4", 16, true},
		{"bvec2", 8, true},
		{"dvec3", 24, true},
		{"mat2", 16, true},
		{"mat3", 36, true},
		{"mat4", 64, true},
		{"mat4x4", 64, true},
		{"mat2x3", 24, true},
		{"mat4x2", 32, true},
		{"sampler2D", 0, false},
		{"image2D", 0, false},
		{"void", 0, false},
		{"Ray", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			size, known := TypeSize(tt.tag)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestArraySize(t *testing.T) {
	size, ok := ArraySize(4, []ArrayDim{{Size: 8, Sized: true}, {Size: 2, Sized: true}})
	assert.True(t, ok)
	assert.Equal(t, uint32(64), size)

	_, ok = ArraySize(4, []ArrayDim{{Text: "[]"}})
	assert.False(t, ok)

	_, ok = ArraySize(4, []ArrayDim{{Text: "[N]"}})
	assert.False(t, ok)

	size, ok = ArraySize(12, nil)
	assert.True(t, ok)
	assert.Equal(t, uint32(12), size)
}
