package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/gputest"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

func TestMultiImageCreatesDistinctReplicas(t *testing.T) {
	dev := newDevice()
	mi, err := NewMultiImage(dev, "out_img", 2, testExtent, metadata.ImageFormatRGBA32Float)
	require.NoError(t, err)

	assert.Equal(t, 2, mi.Replicas())
	assert.Equal(t, testExtent, mi.Extent())
	assert.Equal(t, metadata.ImageFormatRGBA32Float, mi.Format())
	assert.NotEqual(t, mi.Replica(0).Image, mi.Replica(1).Image)
	assert.Equal(t, testExtent, dev.ImageExtent(mi.Replica(1).Image))

	mi.Destroy()
	assert.Zero(t, dev.Live().Total())
	assert.Empty(t, dev.ValidationErrors())
}

func TestMultiImageRollsBackOnAllocationFailure(t *testing.T) {
	dev := newDevice()
	dev.FailAllocationAt(3)

	_, err := NewMultiImage(dev, "out_img", 3, testExtent, metadata.ImageFormatRGBA8Unorm)
	var allocErr *AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.Equal(t, 2, allocErr.Replica)
	assert.True(t, errors.Is(err, core.ErrOutOfDeviceMemory))
	assert.Zero(t, dev.Live().Total())
}

func TestMultiImageRejectsEmptyExtent(t *testing.T) {
	_, err := NewMultiImage(newDevice(), "out_img", 2, metadata.Extent{}, metadata.ImageFormatRGBA8Unorm)
	assert.Error(t, err)
}

func TestPreviousViewRotation(t *testing.T) {
	dev := gputest.New(3, 3, testExtent)
	mi, err := NewMultiImage(dev, "out_img", 3, testExtent, metadata.ImageFormatRGBA8Unorm)
	require.NoError(t, err)
	defer mi.Destroy()

	// stand in for the shader: frame r writes marker r into replica r
	for r := 0; r < mi.Replicas(); r++ {
		dev.ImageMemory(mi.Replica(r).Image)[0] = byte(10 + r)
	}

	prev := PreviousOf(mi)
	assert.Same(t, mi, prev.Base())
	assert.Equal(t, 3, prev.Replicas())
	for r := 0; r < 3; r++ {
		want := byte(10 + (r+2)%3)
		assert.Equal(t, want, dev.ImageMemory(prev.Replica(r).Image)[0], "replica %d", r)
	}
	assert.Equal(t, mi.Replica(2), prev.Replica(0))
	assert.Panics(t, func() { prev.Replica(3) })
}

func TestPreviousViewOfDestroyedImagePanics(t *testing.T) {
	dev := newDevice()
	mi, err := NewMultiImage(dev, "out_img", 2, testExtent, metadata.ImageFormatRGBA8Unorm)
	require.NoError(t, err)

	prev := PreviousOf(mi)
	mi.Destroy()
	assert.Panics(t, func() { prev.Replica(0) })
}
