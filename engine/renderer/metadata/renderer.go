package metadata

import "fmt"

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief The requested number of frames in flight. Clamped to the swapchain image count. */
	FramesInFlight uint32
	/** @brief Enables the Khronos validation layer and debug messenger. */
	Validation bool
}

/** @brief A two dimensional size in pixels. */
type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Handles are opaque identifiers issued by a backend. The zero value is
// never a live object.
type (
	BufferHandle              uint64
	ImageHandle               uint64
	ImageViewHandle           uint64
	SamplerHandle             uint64
	MemoryHandle              uint64
	DescriptorPoolHandle      uint64
	DescriptorSetLayoutHandle uint64
	DescriptorSetHandle       uint64
	PipelineHandle            uint64
)

/** @brief Memory property flags requested for an allocation. */
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal MemoryProperty = 1 << iota
	MemoryPropertyHostVisible
	MemoryPropertyHostCoherent
)

/** @brief Size, alignment and compatible memory types of a resource. */
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

type MemoryRange struct {
	Offset uint64
	Size   uint64
}

/** @brief A descriptor set and the set index it is bound at. */
type BoundDescriptorSet struct {
	Index uint32
	Set   DescriptorSetHandle
}

/**
 * @brief Everything the backend needs to record, submit and present one
 * compute frame.
 */
type FrameSubmission struct {
	Pipeline PipelineHandle
	/** @brief Descriptor sets by set index, ascending. Indices without descriptors are absent. */
	DescriptorSets []BoundDescriptorSet
	/** @brief Encoded push constant bytes, empty when the pipeline has none. */
	PushConstants []byte
	/** @brief Workgroup counts per axis. */
	Dispatch [3]uint32
	/** @brief Images written by the dispatch. Their next use waits on it. */
	Images []ImageHandle
	/** @brief Image blitted to the acquired swapchain image, zero to skip presenting. */
	Present       ImageHandle
	PresentExtent Extent
}
