package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivCeil(t *testing.T) {
	assert.Equal(t, uint32(20), DivCeil[uint32](1280, 64))
	assert.Equal(t, uint32(21), DivCeil[uint32](1281, 64))
	assert.Equal(t, uint32(1), DivCeil[uint32](1, 16))
	assert.Equal(t, uint32(0), DivCeil[uint32](0, 16))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(4), Clamp[uint32](9, 1, 4))
	assert.Equal(t, 1.5, Clamp(0.5, 1.5, 2.0))
}
