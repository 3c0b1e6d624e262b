package gputest

import "github.com/spaghettifunk/spectra/engine/renderer/metadata"

// ValidationErrors returns every misuse recorded so far.
func (d *Device) ValidationErrors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.validation...)
}

// Submissions returns copies of every submitted frame in order.
func (d *Device) Submissions() []metadata.FrameSubmission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]metadata.FrameSubmission(nil), d.submissions...)
}

// Recreations counts swapchain rebuilds.
func (d *Device) Recreations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recreations
}

// Live counts objects that were created and not destroyed.
type Live struct {
	Buffers    int
	Images     int
	Views      int
	Samplers   int
	Memory     int
	Pools      int
	SetLayouts int
	Sets       int
	Pipelines  int
}

// Total sums every live object.
func (l Live) Total() int {
	return l.Buffers + l.Images + l.Views + l.Samplers + l.Memory +
		l.Pools + l.SetLayouts + l.Sets + l.Pipelines
}

func (d *Device) Live() Live {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Live{
		Buffers:    len(d.buffers),
		Images:     len(d.images),
		Views:      len(d.views),
		Samplers:   len(d.samplers),
		Memory:     len(d.memory),
		Pools:      len(d.pools),
		SetLayouts: len(d.layouts),
		Sets:       len(d.sets),
		Pipelines:  len(d.pipelines),
	}
}

// PoolCapacity returns the descriptor counts and max sets a pool was
// created with, minus what has been allocated from it.
func (d *Device) PoolCapacity(h metadata.DescriptorPoolHandle) (map[metadata.DescriptorType]uint32, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[h]
	if !ok {
		return nil, 0
	}
	out := make(map[metadata.DescriptorType]uint32, len(p.remaining))
	for t, n := range p.remaining {
		out[t] = n
	}
	return out, p.maxSets - uint32(len(p.sets))
}

// SetLayoutBindings returns the bindings a set layout was created with.
func (d *Device) SetLayoutBindings(h metadata.DescriptorSetLayoutHandle) []metadata.DescriptorSetLayoutBinding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]metadata.DescriptorSetLayoutBinding(nil), d.layouts[h]...)
}

// DescriptorWrites returns the current content of a descriptor set.
func (d *Device) DescriptorWrites(h metadata.DescriptorSetHandle) map[uint32]metadata.DescriptorWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sets[h]
	if !ok {
		return nil
	}
	out := make(map[uint32]metadata.DescriptorWrite, len(set.writes))
	for b, w := range set.writes {
		out[b] = w
	}
	return out
}

// ImageMemory returns the device memory backing an image, for tests that
// stand in for shader reads and writes.
func (d *Device) ImageMemory(h metadata.ImageHandle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[h]
	if !ok {
		return nil
	}
	a, ok := d.memory[img.memory]
	if !ok {
		return nil
	}
	return a.data
}

// ImageExtent returns the extent an image was created with.
func (d *Device) ImageExtent(h metadata.ImageHandle) metadata.Extent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if img, ok := d.images[h]; ok {
		return img.extent
	}
	return metadata.Extent{}
}

// BufferMemory returns the memory backing a buffer.
func (d *Device) BufferMemory(h metadata.BufferHandle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		return nil
	}
	a, ok := d.memory[b.memory]
	if !ok {
		return nil
	}
	return a.data[:b.size]
}

// Pipeline returns the configuration a pipeline was created with.
func (d *Device) Pipeline(h metadata.PipelineHandle) *metadata.ComputePipelineConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipelines[h]
}
