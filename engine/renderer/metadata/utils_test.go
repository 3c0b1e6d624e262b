package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAligned(t *testing.T) {
	assert.Equal(t, uint64(0), GetAligned(0, 16))
	assert.Equal(t, uint64(16), GetAligned(1, 16))
	assert.Equal(t, uint64(16), GetAligned(16, 16))
	assert.Equal(t, uint64(260), GetAligned(257, 4))
	assert.Equal(t, uint64(7), GetAligned(7, 0))

	r := GetAlignedRange(3, 10, 4)
	assert.Equal(t, &MemoryRange{Offset: 4, Size: 12}, r)
}

func TestParseImageFormat(t *testing.T) {
	f, ok := ParseImageFormat("rgba32f")
	assert.True(t, ok)
	assert.Equal(t, ImageFormatRGBA32Float, f)
	assert.Equal(t, uint64(16), f.TexelSize())

	f, ok = ParseImageFormat("")
	assert.True(t, ok)
	assert.Equal(t, ImageFormatRGBA8Unorm, f)

	_, ok = ParseImageFormat("r11f_g11f_b10f")
	assert.False(t, ok)
}
