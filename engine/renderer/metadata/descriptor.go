package metadata

import "fmt"

type DescriptorType uint8

const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeCount
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "sampler"
	case DescriptorTypeCombinedImageSampler:
		return "combined image sampler"
	case DescriptorTypeSampledImage:
		return "sampled image"
	case DescriptorTypeStorageImage:
		return "storage image"
	case DescriptorTypeUniformBuffer:
		return "uniform buffer"
	case DescriptorTypeStorageBuffer:
		return "storage buffer"
	}
	return fmt.Sprintf("DescriptorType(%d)", t)
}

/** @brief Number of descriptors of one type a pool can hold. */
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

/** @brief One binding slot of a set layout, visible to the compute stage. */
type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
}

/**
 * @brief A single descriptor update. Buffer fields are used for buffer
 * types, image fields for the rest.
 */
type DescriptorWrite struct {
	Set     DescriptorSetHandle
	Binding uint32
	Type    DescriptorType

	Buffer BufferHandle
	Offset uint64
	Range  uint64

	ImageView ImageViewHandle
	Sampler   SamplerHandle
}
