// Package gputest provides a software implementation of the renderer backend
// for tests. Memory is plain host memory, submissions complete after a
// configurable delay, and misuse that a Vulkan validation layer would catch
// is recorded instead of crashing.
package gputest

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type buffer struct {
	size   uint64
	usage  metadata.BufferUsage
	memory metadata.MemoryHandle
}

type image struct {
	extent metadata.Extent
	format metadata.ImageFormat
	usage  metadata.ImageUsage
	memory metadata.MemoryHandle
}

type allocation struct {
	data   []byte
	props  metadata.MemoryProperty
	mapped bool
}

type pool struct {
	remaining map[metadata.DescriptorType]uint32
	maxSets   uint32
	sets      []metadata.DescriptorSetHandle
}

type descriptorSet struct {
	pool   metadata.DescriptorPoolHandle
	layout metadata.DescriptorSetLayoutHandle
	writes map[uint32]metadata.DescriptorWrite
}

// submission is a frame the simulated GPU is still executing.
type submission struct {
	frame    uint64
	slot     uint32
	done     time.Time
	buffers  map[metadata.BufferHandle]bool
	images   map[metadata.ImageHandle]bool
	views    map[metadata.ImageViewHandle]bool
	sets     map[metadata.DescriptorSetHandle]bool
	pipeline metadata.PipelineHandle
}

// Device is a software RendererBackend. The zero value is not usable; use
// New.
type Device struct {
	mu sync.Mutex

	framesInFlight uint32
	imageCount     uint32
	extent         metadata.Extent
	next           uint64

	// GPUDelay is how long every submitted frame keeps executing.
	GPUDelay time.Duration
	// MemoryBudget limits the total bytes of live allocations, 0 is unlimited.
	MemoryBudget uint64

	buffers   map[metadata.BufferHandle]*buffer
	images    map[metadata.ImageHandle]*image
	views     map[metadata.ImageViewHandle]metadata.ImageHandle
	samplers  map[metadata.SamplerHandle]bool
	memory    map[metadata.MemoryHandle]*allocation
	pools     map[metadata.DescriptorPoolHandle]*pool
	layouts   map[metadata.DescriptorSetLayoutHandle][]metadata.DescriptorSetLayoutBinding
	sets      map[metadata.DescriptorSetHandle]*descriptorSet
	pipelines map[metadata.PipelineHandle]*metadata.ComputePipelineConfig

	inflight    []*submission
	submissions []metadata.FrameSubmission
	validation  []string
	recreations int

	allocCalls  int
	failAllocAt int
	beginErrs   []error
	endErrs     []error
}

// New creates a device with the given frames in flight, swapchain image
// count and surface extent.
func New(framesInFlight, imageCount uint32, extent metadata.Extent) *Device {
	return &Device{
		framesInFlight: framesInFlight,
		imageCount:     imageCount,
		extent:         extent,
		buffers:        make(map[metadata.BufferHandle]*buffer),
		images:         make(map[metadata.ImageHandle]*image),
		views:          make(map[metadata.ImageViewHandle]metadata.ImageHandle),
		samplers:       make(map[metadata.SamplerHandle]bool),
		memory:         make(map[metadata.MemoryHandle]*allocation),
		pools:          make(map[metadata.DescriptorPoolHandle]*pool),
		layouts:        make(map[metadata.DescriptorSetLayoutHandle][]metadata.DescriptorSetLayoutBinding),
		sets:           make(map[metadata.DescriptorSetHandle]*descriptorSet),
		pipelines:      make(map[metadata.PipelineHandle]*metadata.ComputePipelineConfig),
	}
}

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

func (d *Device) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.validation = append(d.validation, msg)
	core.LogError("gputest validation: %s", msg)
}

// FailAllocationAt makes the n-th AllocateMemory call from now fail with
// core.ErrOutOfDeviceMemory. n <= 0 disables the failure.
func (d *Device) FailAllocationAt(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocCalls = 0
	d.failAllocAt = n
}

// FailNextBeginFrame makes the next BeginFrame return err.
func (d *Device) FailNextBeginFrame(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beginErrs = append(d.beginErrs, err)
}

// FailNextEndFrame makes the next EndFrame return err.
func (d *Device) FailNextEndFrame(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endErrs = append(d.endErrs, err)
}

// SetSurfaceExtent simulates the window changing size.
func (d *Device) SetSurfaceExtent(extent metadata.Extent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extent = extent
}

func (d *Device) FramesInFlight() uint32 {
	if d.framesInFlight < d.imageCount {
		return d.framesInFlight
	}
	return d.imageCount
}

func (d *Device) SurfaceExtent() metadata.Extent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extent
}

func (d *Device) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size == 0 {
		d.violation("CreateBuffer with size 0")
		return 0, fmt.Errorf("buffer size must be greater than zero: %w", core.ErrUnknown)
	}
	h := metadata.BufferHandle(d.id())
	d.buffers[h] = &buffer{size: size, usage: usage}
	return h, nil
}

func (d *Device) DestroyBuffer(h metadata.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[h]; !ok {
		d.violation("DestroyBuffer of unknown buffer %d", h)
		return
	}
	for _, s := range d.executing() {
		if s.buffers[h] {
			d.violation("buffer %d destroyed while in use by frame %d", h, s.frame)
		}
	}
	delete(d.buffers, h)
}

func (d *Device) BufferMemoryRequirements(h metadata.BufferHandle) metadata.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		d.violation("BufferMemoryRequirements of unknown buffer %d", h)
		return metadata.MemoryRequirements{}
	}
	return metadata.MemoryRequirements{Size: metadata.GetAligned(b.size, 256), Alignment: 256, TypeBits: 0x3}
}

func (d *Device) CreateImage(extent metadata.Extent, format metadata.ImageFormat, usage metadata.ImageUsage) (metadata.ImageHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if extent.IsZero() || format.TexelSize() == 0 {
		d.violation("CreateImage with extent %s format %d", extent, format)
		return 0, fmt.Errorf("invalid image %s: %w", extent, core.ErrUnknown)
	}
	h := metadata.ImageHandle(d.id())
	d.images[h] = &image{extent: extent, format: format, usage: usage}
	return h, nil
}

func (d *Device) DestroyImage(h metadata.ImageHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[h]; !ok {
		d.violation("DestroyImage of unknown image %d", h)
		return
	}
	for _, s := range d.executing() {
		if s.images[h] {
			d.violation("image %d destroyed while in use by frame %d", h, s.frame)
		}
	}
	delete(d.images, h)
}

func (d *Device) ImageMemoryRequirements(h metadata.ImageHandle) metadata.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[h]
	if !ok {
		d.violation("ImageMemoryRequirements of unknown image %d", h)
		return metadata.MemoryRequirements{}
	}
	size := uint64(img.extent.Width) * uint64(img.extent.Height) * img.format.TexelSize()
	return metadata.MemoryRequirements{Size: metadata.GetAligned(size, 4096), Alignment: 4096, TypeBits: 0x1}
}

func (d *Device) CreateImageView(h metadata.ImageHandle, format metadata.ImageFormat) (metadata.ImageViewHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[h]
	if !ok {
		d.violation("CreateImageView of unknown image %d", h)
		return 0, fmt.Errorf("unknown image %d: %w", h, core.ErrUnknown)
	}
	if img.memory == 0 {
		d.violation("CreateImageView of image %d without bound memory", h)
	}
	v := metadata.ImageViewHandle(d.id())
	d.views[v] = h
	return v, nil
}

func (d *Device) DestroyImageView(v metadata.ImageViewHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.views[v]; !ok {
		d.violation("DestroyImageView of unknown view %d", v)
		return
	}
	for _, s := range d.executing() {
		if s.views[v] {
			d.violation("image view %d destroyed while in use by frame %d", v, s.frame)
		}
	}
	delete(d.views, v)
}

func (d *Device) CreateSampler() (metadata.SamplerHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := metadata.SamplerHandle(d.id())
	d.samplers[h] = true
	return h, nil
}

func (d *Device) DestroySampler(h metadata.SamplerHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.samplers[h] {
		d.violation("DestroySampler of unknown sampler %d", h)
		return
	}
	delete(d.samplers, h)
}

func (d *Device) AllocateMemory(req metadata.MemoryRequirements, props metadata.MemoryProperty) (metadata.MemoryHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocCalls++
	if d.failAllocAt > 0 && d.allocCalls == d.failAllocAt {
		return 0, fmt.Errorf("allocating %d bytes: %w", req.Size, core.ErrOutOfDeviceMemory)
	}
	if d.MemoryBudget > 0 && d.liveBytes()+req.Size > d.MemoryBudget {
		return 0, fmt.Errorf("allocating %d bytes: %w", req.Size, core.ErrOutOfDeviceMemory)
	}
	h := metadata.MemoryHandle(d.id())
	d.memory[h] = &allocation{data: make([]byte, req.Size), props: props}
	return h, nil
}

func (d *Device) liveBytes() uint64 {
	var total uint64
	for _, a := range d.memory {
		total += uint64(len(a.data))
	}
	return total
}

func (d *Device) FreeMemory(h metadata.MemoryHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.memory[h]
	if !ok {
		d.violation("FreeMemory of unknown memory %d", h)
		return
	}
	if a.mapped {
		d.violation("memory %d freed while mapped", h)
	}
	for bh, b := range d.buffers {
		if b.memory == h {
			d.violation("memory %d freed before buffer %d", h, bh)
		}
	}
	for ih, img := range d.images {
		if img.memory == h {
			d.violation("memory %d freed before image %d", h, ih)
		}
	}
	delete(d.memory, h)
}

func (d *Device) BindBufferMemory(bh metadata.BufferHandle, mh metadata.MemoryHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[bh]
	a, okm := d.memory[mh]
	if !ok || !okm {
		d.violation("BindBufferMemory(%d, %d) with unknown handle", bh, mh)
		return fmt.Errorf("bind buffer memory: %w", core.ErrUnknown)
	}
	if uint64(len(a.data)) < b.size {
		d.violation("memory %d too small for buffer %d", mh, bh)
		return fmt.Errorf("bind buffer memory: %w", core.ErrUnknown)
	}
	b.memory = mh
	return nil
}

func (d *Device) BindImageMemory(ih metadata.ImageHandle, mh metadata.MemoryHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[ih]
	if _, okm := d.memory[mh]; !ok || !okm {
		d.violation("BindImageMemory(%d, %d) with unknown handle", ih, mh)
		return fmt.Errorf("bind image memory: %w", core.ErrUnknown)
	}
	img.memory = mh
	return nil
}

func (d *Device) MapMemory(h metadata.MemoryHandle, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.memory[h]
	if !ok {
		d.violation("MapMemory of unknown memory %d", h)
		return nil, fmt.Errorf("map memory: %w", core.ErrUnknown)
	}
	if a.props&metadata.MemoryPropertyHostVisible == 0 {
		d.violation("MapMemory of memory %d that is not host visible", h)
		return nil, fmt.Errorf("map memory: %w", core.ErrUnknown)
	}
	if a.mapped {
		d.violation("memory %d mapped twice", h)
	}
	if size > uint64(len(a.data)) {
		d.violation("MapMemory of %d bytes beyond allocation %d", size, h)
		return nil, fmt.Errorf("map memory: %w", core.ErrUnknown)
	}
	a.mapped = true
	return a.data[:size:size], nil
}

func (d *Device) UnmapMemory(h metadata.MemoryHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.memory[h]
	if !ok || !a.mapped {
		d.violation("UnmapMemory of memory %d that is not mapped", h)
		return
	}
	a.mapped = false
}
