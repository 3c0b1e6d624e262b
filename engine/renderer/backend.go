package renderer

import "github.com/spaghettifunk/spectra/engine/renderer/metadata"

// RendererBackend is the device a Program and its resources are built on.
// Resources keep a non-owning reference to it; the backend owns the logical
// device and outlives everything created from it.
type RendererBackend interface {
	FramesInFlight() uint32
	SurfaceExtent() metadata.Extent

	CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.BufferHandle, error)
	DestroyBuffer(buffer metadata.BufferHandle)
	BufferMemoryRequirements(buffer metadata.BufferHandle) metadata.MemoryRequirements

	CreateImage(extent metadata.Extent, format metadata.ImageFormat, usage metadata.ImageUsage) (metadata.ImageHandle, error)
	DestroyImage(image metadata.ImageHandle)
	ImageMemoryRequirements(image metadata.ImageHandle) metadata.MemoryRequirements
	CreateImageView(image metadata.ImageHandle, format metadata.ImageFormat) (metadata.ImageViewHandle, error)
	DestroyImageView(view metadata.ImageViewHandle)
	CreateSampler() (metadata.SamplerHandle, error)
	DestroySampler(sampler metadata.SamplerHandle)

	AllocateMemory(req metadata.MemoryRequirements, props metadata.MemoryProperty) (metadata.MemoryHandle, error)
	FreeMemory(memory metadata.MemoryHandle)
	BindBufferMemory(buffer metadata.BufferHandle, memory metadata.MemoryHandle) error
	BindImageMemory(image metadata.ImageHandle, memory metadata.MemoryHandle) error
	MapMemory(memory metadata.MemoryHandle, size uint64) ([]byte, error)
	UnmapMemory(memory metadata.MemoryHandle)

	CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.DescriptorPoolHandle, error)
	DestroyDescriptorPool(pool metadata.DescriptorPoolHandle)
	CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.DescriptorSetLayoutHandle, error)
	DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayoutHandle)
	AllocateDescriptorSets(pool metadata.DescriptorPoolHandle, layouts []metadata.DescriptorSetLayoutHandle) ([]metadata.DescriptorSetHandle, error)
	UpdateDescriptorSets(writes []metadata.DescriptorWrite)

	CreateComputePipeline(config *metadata.ComputePipelineConfig) (metadata.PipelineHandle, error)
	DestroyComputePipeline(pipeline metadata.PipelineHandle)

	// BeginFrame waits until the previous frame that used this frame's slot
	// has completed, so its replicas may be rewritten.
	BeginFrame(frame uint64) error
	// EndFrame acquires a swapchain image, records the dispatch, submits it
	// and presents. core.ErrSurfaceOutOfDate asks for RecreateSwapchain; the
	// frame's fence is left so the next BeginFrame of the slot cannot block.
	EndFrame(frame uint64, sub *metadata.FrameSubmission) error
	WaitIdle() error
	// RecreateSwapchain rebuilds the swapchain and returns the extent it
	// actually got.
	RecreateSwapchain(extent metadata.Extent) (metadata.Extent, error)
}
