package gputest

import (
	"fmt"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

func (d *Device) CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.DescriptorPoolHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if maxSets == 0 {
		d.violation("CreateDescriptorPool with maxSets 0")
		return 0, fmt.Errorf("descriptor pool: %w", core.ErrUnknown)
	}
	p := &pool{remaining: make(map[metadata.DescriptorType]uint32), maxSets: maxSets}
	for _, s := range sizes {
		if s.Count == 0 {
			d.violation("descriptor pool size for %s has count 0", s.Type)
		}
		p.remaining[s.Type] += s.Count
	}
	h := metadata.DescriptorPoolHandle(d.id())
	d.pools[h] = p
	return h, nil
}

func (d *Device) DestroyDescriptorPool(h metadata.DescriptorPoolHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[h]
	if !ok {
		d.violation("DestroyDescriptorPool of unknown pool %d", h)
		return
	}
	for _, set := range p.sets {
		for _, s := range d.executing() {
			if s.sets[set] {
				d.violation("descriptor set %d freed while in use by frame %d", set, s.frame)
			}
		}
		delete(d.sets, set)
	}
	delete(d.pools, h)
}

func (d *Device) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.DescriptorSetLayoutHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[uint32]bool)
	for _, b := range bindings {
		if seen[b.Binding] {
			d.violation("set layout declares binding %d twice", b.Binding)
			return 0, fmt.Errorf("descriptor set layout: %w", core.ErrUnknown)
		}
		seen[b.Binding] = true
	}
	h := metadata.DescriptorSetLayoutHandle(d.id())
	d.layouts[h] = append([]metadata.DescriptorSetLayoutBinding(nil), bindings...)
	return h, nil
}

func (d *Device) DestroyDescriptorSetLayout(h metadata.DescriptorSetLayoutHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layouts[h]; !ok {
		d.violation("DestroyDescriptorSetLayout of unknown layout %d", h)
		return
	}
	delete(d.layouts, h)
}

func (d *Device) AllocateDescriptorSets(ph metadata.DescriptorPoolHandle, layouts []metadata.DescriptorSetLayoutHandle) ([]metadata.DescriptorSetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[ph]
	if !ok {
		d.violation("AllocateDescriptorSets from unknown pool %d", ph)
		return nil, fmt.Errorf("allocate descriptor sets: %w", core.ErrUnknown)
	}
	if uint32(len(p.sets)+len(layouts)) > p.maxSets {
		return nil, fmt.Errorf("pool %d holds %d sets: %w", ph, p.maxSets, core.ErrOutOfPoolMemory)
	}
	need := make(map[metadata.DescriptorType]uint32)
	for _, lh := range layouts {
		bindings, ok := d.layouts[lh]
		if !ok {
			d.violation("AllocateDescriptorSets with unknown layout %d", lh)
			return nil, fmt.Errorf("allocate descriptor sets: %w", core.ErrUnknown)
		}
		for _, b := range bindings {
			need[b.Type] += b.Count
		}
	}
	for t, n := range need {
		if p.remaining[t] < n {
			return nil, fmt.Errorf("pool %d out of %s descriptors: %w", ph, t, core.ErrOutOfPoolMemory)
		}
	}
	for t, n := range need {
		p.remaining[t] -= n
	}

	out := make([]metadata.DescriptorSetHandle, len(layouts))
	for i, lh := range layouts {
		h := metadata.DescriptorSetHandle(d.id())
		d.sets[h] = &descriptorSet{pool: ph, layout: lh, writes: make(map[uint32]metadata.DescriptorWrite)}
		p.sets = append(p.sets, h)
		out[i] = h
	}
	return out, nil
}

func (d *Device) UpdateDescriptorSets(writes []metadata.DescriptorWrite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		set, ok := d.sets[w.Set]
		if !ok {
			d.violation("UpdateDescriptorSets on unknown set %d", w.Set)
			continue
		}
		for _, s := range d.executing() {
			if s.sets[w.Set] {
				d.violation("descriptor set %d updated while in use by frame %d", w.Set, s.frame)
			}
		}
		var declared *metadata.DescriptorSetLayoutBinding
		for i, b := range d.layouts[set.layout] {
			if b.Binding == w.Binding {
				declared = &d.layouts[set.layout][i]
			}
		}
		if declared == nil || declared.Type != w.Type {
			d.violation("write of %s to set %d binding %d does not match its layout", w.Type, w.Set, w.Binding)
			continue
		}
		if err := d.checkWrite(w); err != nil {
			d.violation("set %d binding %d: %v", w.Set, w.Binding, err)
			continue
		}
		set.writes[w.Binding] = w
	}
}

// checkWrite reports a write referencing objects that are not alive.
func (d *Device) checkWrite(w metadata.DescriptorWrite) error {
	switch w.Type {
	case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
		b, ok := d.buffers[w.Buffer]
		if !ok {
			return fmt.Errorf("buffer %d is not alive", w.Buffer)
		}
		if w.Offset+w.Range > b.size {
			return fmt.Errorf("range %d+%d exceeds buffer %d of %d bytes", w.Offset, w.Range, w.Buffer, b.size)
		}
	case metadata.DescriptorTypeSampler:
		if !d.samplers[w.Sampler] {
			return fmt.Errorf("sampler %d is not alive", w.Sampler)
		}
	default:
		if _, ok := d.views[w.ImageView]; !ok {
			return fmt.Errorf("image view %d is not alive", w.ImageView)
		}
		if w.Type == metadata.DescriptorTypeCombinedImageSampler && !d.samplers[w.Sampler] {
			return fmt.Errorf("sampler %d is not alive", w.Sampler)
		}
	}
	return nil
}

func (d *Device) CreateComputePipeline(config *metadata.ComputePipelineConfig) (metadata.PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(config.Code) == 0 {
		d.violation("CreateComputePipeline %s without code", config.Name)
		return 0, fmt.Errorf("compute pipeline %s: %w", config.Name, core.ErrUnknown)
	}
	for _, lh := range config.SetLayouts {
		if _, ok := d.layouts[lh]; !ok {
			d.violation("compute pipeline %s uses unknown set layout %d", config.Name, lh)
			return 0, fmt.Errorf("compute pipeline %s: %w", config.Name, core.ErrUnknown)
		}
	}
	if pc := config.PushConstants; pc != nil && (pc.Size == 0 || pc.Size%4 != 0 || pc.Offset%4 != 0) {
		d.violation("compute pipeline %s push constant range %d+%d is not 4 byte aligned", config.Name, pc.Offset, pc.Size)
	}
	cfg := *config
	h := metadata.PipelineHandle(d.id())
	d.pipelines[h] = &cfg
	return h, nil
}

func (d *Device) DestroyComputePipeline(h metadata.PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[h]; !ok {
		d.violation("DestroyComputePipeline of unknown pipeline %d", h)
		return
	}
	for _, s := range d.executing() {
		if s.pipeline == h {
			d.violation("pipeline %d destroyed while in use by frame %d", h, s.frame)
		}
	}
	delete(d.pipelines, h)
}
