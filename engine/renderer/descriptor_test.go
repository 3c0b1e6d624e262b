package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
)

func bindingTable(t *testing.T, source string) *layout.Layout {
	t.Helper()
	refl, err := shader.Reflect("table.comp", source)
	require.NoError(t, err)
	l, err := layout.Synthesize(refl)
	require.NoError(t, err)
	return l
}

func TestDescriptorAllocatorPoolSizes(t *testing.T) {
	dev := newDevice()
	table := bindingTable(t, visualizerShader)

	a, err := NewDescriptorAllocator(dev, []*layout.Layout{table}, 2)
	require.NoError(t, err)

	sizes, maxSets := dev.PoolCapacity(a.Pool())
	assert.Equal(t, uint32(4), maxSets, "two set layouts times two replicas")
	assert.Equal(t, map[metadata.DescriptorType]uint32{
		metadata.DescriptorTypeStorageImage:         2,
		metadata.DescriptorTypeCombinedImageSampler: 2,
		metadata.DescriptorTypeStorageBuffer:        2,
		metadata.DescriptorTypeUniformBuffer:        2,
	}, sizes)

	sets := a.SetLayouts(table)
	require.Len(t, sets, 2, "one layout per distinct set index")
	assert.Equal(t, uint32(0), sets[0].Index)
	assert.Equal(t, uint32(2), sets[1].Index)
	assert.Equal(t, []metadata.DescriptorSetLayoutBinding{
		{Binding: 0, Type: metadata.DescriptorTypeStorageImage, Count: 1},
		{Binding: 1, Type: metadata.DescriptorTypeCombinedImageSampler, Count: 1},
	}, dev.SetLayoutBindings(sets[0].Handle))
	assert.Equal(t, []string{"dft", "params"}, []string{sets[1].Sources[0].Name, sets[1].Sources[1].Name})
	assert.Equal(t, 2, dev.Live().SetLayouts)

	allocated, err := a.AllocateSets(table)
	require.NoError(t, err)
	require.Len(t, allocated, 2)
	assert.Len(t, allocated[0], 2)

	a.Destroy()
	assert.Zero(t, dev.Live().Total())
	assert.Empty(t, dev.ValidationErrors())
}

func TestDescriptorAllocatorSharedPool(t *testing.T) {
	dev := newDevice()
	first := bindingTable(t, visualizerShader)
	second := bindingTable(t, plainShader)

	a, err := NewDescriptorAllocator(dev, []*layout.Layout{first, second}, 2)
	require.NoError(t, err)
	defer a.Destroy()

	sizes, maxSets := dev.PoolCapacity(a.Pool())
	assert.Equal(t, uint32(6), maxSets)
	assert.Equal(t, uint32(4), sizes[metadata.DescriptorTypeStorageImage])
	assert.Equal(t, uint32(4), sizes[metadata.DescriptorTypeStorageBuffer])

	for _, table := range []*layout.Layout{first, second} {
		sets, err := a.AllocateSets(table)
		require.NoError(t, err)
		require.Len(t, sets, 2)
		assert.Len(t, sets[0], len(a.SetLayouts(table)))
		assert.NotEqual(t, sets[0][0], sets[1][0])
	}
	sizes, maxSets = dev.PoolCapacity(a.Pool())
	assert.Zero(t, maxSets)
	for typ, n := range sizes {
		assert.Zero(t, n, "%s left over", typ)
	}
}

func TestDescriptorAllocatorPushConstantsOnly(t *testing.T) {
	dev := newDevice()
	table := bindingTable(t, `layout(push_constant) uniform PC { float now; } pc;`)

	a, err := NewDescriptorAllocator(dev, []*layout.Layout{table}, 2)
	require.NoError(t, err)
	assert.Zero(t, a.Pool())
	assert.Empty(t, a.SetLayouts(table))

	sets, err := a.AllocateSets(table)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Empty(t, sets[0])
	a.Destroy()
	assert.Zero(t, dev.Live().Total())
}

func TestDescriptorAllocatorRejectsUnsupported(t *testing.T) {
	dev := newDevice()
	table := bindingTable(t, `
layout(binding = 0) uniform image2D ok;
layout(set = 1, binding = 0) uniform float gain;
`)
	_, err := NewDescriptorAllocator(dev, []*layout.Layout{table}, 2)
	assert.True(t, errors.Is(err, layout.ErrUnsupported))

	var le *layout.Error
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "gain", le.Name)
	assert.Equal(t, uint32(1), le.Set)
	assert.Zero(t, dev.Live().Total())
}

func TestDescriptorAllocatorRejectsMissingBinding(t *testing.T) {
	dev := newDevice()
	table := bindingTable(t, `layout(set = 0) uniform sampler2D tex;`)
	_, err := NewDescriptorAllocator(dev, []*layout.Layout{table}, 2)
	assert.True(t, errors.Is(err, layout.ErrMissingBinding))
	assert.Zero(t, dev.Live().Total())
}

func TestDescriptorAllocatorPoolExhaustion(t *testing.T) {
	dev := newDevice()
	table := bindingTable(t, plainShader)
	a, err := NewDescriptorAllocator(dev, []*layout.Layout{table}, 2)
	require.NoError(t, err)
	defer a.Destroy()

	_, err = a.AllocateSets(table)
	require.NoError(t, err)
	_, err = a.AllocateSets(table)
	var allocErr *AllocationError
	require.True(t, errors.As(err, &allocErr))
	assert.True(t, errors.Is(err, core.ErrOutOfPoolMemory))
}

func TestDescriptorTypeMapping(t *testing.T) {
	for kind, want := range map[layout.Kind]metadata.DescriptorType{
		layout.KindStorageImage:         metadata.DescriptorTypeStorageImage,
		layout.KindSampledImage:         metadata.DescriptorTypeSampledImage,
		layout.KindCombinedImageSampler: metadata.DescriptorTypeCombinedImageSampler,
		layout.KindSampler:              metadata.DescriptorTypeSampler,
		layout.KindUniformBuffer:        metadata.DescriptorTypeUniformBuffer,
		layout.KindStorageBuffer:        metadata.DescriptorTypeStorageBuffer,
	} {
		got, ok := DescriptorType(kind)
		assert.True(t, ok, kind.String())
		assert.Equal(t, want, got, kind.String())
	}
	_, ok := DescriptorType(layout.KindPushConstant)
	assert.False(t, ok)
	_, ok = DescriptorType(layout.KindUnsupported)
	assert.False(t, ok)
}
