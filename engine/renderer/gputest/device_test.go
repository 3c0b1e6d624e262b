package gputest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

func TestFramesInFlightBoundByImages(t *testing.T) {
	assert.Equal(t, uint32(2), New(2, 3, metadata.Extent{Width: 1, Height: 1}).FramesInFlight())
	assert.Equal(t, uint32(2), New(3, 2, metadata.Extent{Width: 1, Height: 1}).FramesInFlight())
}

func TestMemoryFailureInjection(t *testing.T) {
	d := New(2, 2, metadata.Extent{Width: 8, Height: 8})
	d.FailAllocationAt(2)

	req := metadata.MemoryRequirements{Size: 64}
	_, err := d.AllocateMemory(req, metadata.MemoryPropertyHostVisible)
	require.NoError(t, err)
	_, err = d.AllocateMemory(req, metadata.MemoryPropertyHostVisible)
	assert.True(t, errors.Is(err, core.ErrOutOfDeviceMemory))
	_, err = d.AllocateMemory(req, metadata.MemoryPropertyHostVisible)
	assert.NoError(t, err)
}

func TestDestroyWhileInFlightIsReported(t *testing.T) {
	d := New(2, 2, metadata.Extent{Width: 4, Height: 4})
	d.GPUDelay = 200 * time.Millisecond

	img, err := d.CreateImage(metadata.Extent{Width: 4, Height: 4}, metadata.ImageFormatRGBA8Unorm, metadata.ImageUsageStorage)
	require.NoError(t, err)
	mem, err := d.AllocateMemory(d.ImageMemoryRequirements(img), metadata.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	require.NoError(t, d.BindImageMemory(img, mem))

	p, err := d.CreateComputePipeline(&metadata.ComputePipelineConfig{Name: "t", Code: []uint32{0x07230203}})
	require.NoError(t, err)

	require.NoError(t, d.BeginFrame(0))
	require.NoError(t, d.EndFrame(0, &metadata.FrameSubmission{
		Pipeline: p,
		Dispatch: [3]uint32{1, 1, 1},
		Present:  img,
	}))

	d.DestroyImage(img)
	require.Len(t, d.ValidationErrors(), 1)
	assert.Contains(t, d.ValidationErrors()[0], "destroyed while in use")
}

func TestWaitIdleBlocksUntilDone(t *testing.T) {
	d := New(2, 2, metadata.Extent{Width: 4, Height: 4})
	d.GPUDelay = 50 * time.Millisecond

	p, err := d.CreateComputePipeline(&metadata.ComputePipelineConfig{Name: "t", Code: []uint32{0x07230203}})
	require.NoError(t, err)
	require.NoError(t, d.EndFrame(0, &metadata.FrameSubmission{Pipeline: p, Dispatch: [3]uint32{1, 1, 1}}))

	start := time.Now()
	require.NoError(t, d.WaitIdle())
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	d.DestroyComputePipeline(p)
	assert.Empty(t, d.ValidationErrors())
	assert.Zero(t, d.Live().Total())
}

func TestUnboundDescriptorSetIsReported(t *testing.T) {
	d := New(2, 2, metadata.Extent{Width: 4, Height: 4})
	used, err := d.CreateDescriptorSetLayout([]metadata.DescriptorSetLayoutBinding{
		{Binding: 0, Type: metadata.DescriptorTypeStorageBuffer, Count: 1},
	})
	require.NoError(t, err)
	empty, err := d.CreateDescriptorSetLayout(nil)
	require.NoError(t, err)
	p, err := d.CreateComputePipeline(&metadata.ComputePipelineConfig{
		Name:       "t",
		Code:       []uint32{0x07230203},
		SetLayouts: []metadata.DescriptorSetLayoutHandle{empty, used},
	})
	require.NoError(t, err)

	// the empty layout at index 0 needs no set, index 1 does
	require.NoError(t, d.EndFrame(0, &metadata.FrameSubmission{Pipeline: p, Dispatch: [3]uint32{1, 1, 1}}))
	require.Len(t, d.ValidationErrors(), 1)
	assert.Contains(t, d.ValidationErrors()[0], "leaves set 1 of pipeline t unbound")
}
