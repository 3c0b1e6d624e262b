package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

// VulkanDescriptorSet remembers the pool a set came from, destroying the
// pool frees it.
type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   uint64
}

var descriptorTypes = [metadata.DescriptorTypeCount]vk.DescriptorType{
	metadata.DescriptorTypeSampler:              vk.DescriptorTypeSampler,
	metadata.DescriptorTypeCombinedImageSampler: vk.DescriptorTypeCombinedImageSampler,
	metadata.DescriptorTypeSampledImage:         vk.DescriptorTypeSampledImage,
	metadata.DescriptorTypeStorageImage:         vk.DescriptorTypeStorageImage,
	metadata.DescriptorTypeUniformBuffer:        vk.DescriptorTypeUniformBuffer,
	metadata.DescriptorTypeStorageBuffer:        vk.DescriptorTypeStorageBuffer,
}

func vulkanDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	if t >= metadata.DescriptorTypeCount {
		return vk.DescriptorTypeMaxEnum
	}
	return descriptorTypes[t]
}

func (vr *VulkanRenderer) CreateDescriptorPool(sizes []metadata.DescriptorPoolSize, maxSets uint32) (metadata.DescriptorPoolHandle, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vulkanDescriptorType(s.Type),
			DescriptorCount: s.Count,
		})
	}
	if len(poolSizes) == 0 {
		// Layouts with no bindings still need a valid pool size array.
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1})
	}

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &pool); res != vk.Success {
		return 0, resultError("vkCreateDescriptorPool", res)
	}
	return metadata.DescriptorPoolHandle(vr.pools.put(pool)), nil
}

func (vr *VulkanRenderer) DestroyDescriptorPool(pool metadata.DescriptorPoolHandle) {
	p, ok := vr.pools.take(uint64(pool))
	if !ok {
		core.LogWarn("DestroyDescriptorPool called with unknown pool %d", pool)
		return
	}
	vr.sets.deleteWhere(func(s *VulkanDescriptorSet) bool { return s.Pool == uint64(pool) })
	vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, p, vr.context.Allocator)
}

func (vr *VulkanRenderer) CreateDescriptorSetLayout(bindings []metadata.DescriptorSetLayoutBinding) (metadata.DescriptorSetLayoutHandle, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vulkanDescriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutCreateInfo, vr.context.Allocator, &layout); res != vk.Success {
		return 0, resultError("vkCreateDescriptorSetLayout", res)
	}
	return metadata.DescriptorSetLayoutHandle(vr.setLayouts.put(layout)), nil
}

func (vr *VulkanRenderer) DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayoutHandle) {
	l, ok := vr.setLayouts.take(uint64(layout))
	if !ok {
		core.LogWarn("DestroyDescriptorSetLayout called with unknown layout %d", layout)
		return
	}
	vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, l, vr.context.Allocator)
}

// AllocateDescriptorSets allocates one set per layout. On failure the sets
// already allocated by this call go back to the pool.
func (vr *VulkanRenderer) AllocateDescriptorSets(pool metadata.DescriptorPoolHandle, layouts []metadata.DescriptorSetLayoutHandle) ([]metadata.DescriptorSetHandle, error) {
	p, ok := vr.pools.get(uint64(pool))
	if !ok {
		return nil, fmt.Errorf("allocate descriptor sets: unknown pool %d", pool)
	}
	device := vr.context.Device.LogicalDevice

	out := make([]metadata.DescriptorSetHandle, 0, len(layouts))
	var allocated []vk.DescriptorSet
	rollback := func() {
		for _, h := range out {
			vr.sets.take(uint64(h))
		}
		if len(allocated) > 0 {
			vk.FreeDescriptorSets(device, p, uint32(len(allocated)), allocated)
		}
	}

	for _, lh := range layouts {
		l, ok := vr.setLayouts.get(uint64(lh))
		if !ok {
			rollback()
			return nil, fmt.Errorf("allocate descriptor sets: unknown layout %d", lh)
		}
		var set vk.DescriptorSet
		res := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     p,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{l},
		}, &set)
		if res != vk.Success {
			rollback()
			return nil, resultError("vkAllocateDescriptorSets", res)
		}
		allocated = append(allocated, set)
		out = append(out, metadata.DescriptorSetHandle(vr.sets.put(&VulkanDescriptorSet{Handle: set, Pool: uint64(pool)})))
	}
	return out, nil
}

// UpdateDescriptorSets writes every descriptor in one call. Images are
// always in the general layout when a dispatch reads them.
func (vr *VulkanRenderer) UpdateDescriptorSets(writes []metadata.DescriptorWrite) {
	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, ok := vr.sets.get(uint64(w.Set))
		if !ok {
			core.LogWarn("UpdateDescriptorSets skipped write to unknown set %d", w.Set)
			continue
		}
		wd := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.Handle,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  vulkanDescriptorType(w.Type),
		}

		switch w.Type {
		case metadata.DescriptorTypeUniformBuffer, metadata.DescriptorTypeStorageBuffer:
			b, ok := vr.buffers.get(uint64(w.Buffer))
			if !ok {
				core.LogWarn("UpdateDescriptorSets skipped binding %d: unknown buffer %d", w.Binding, w.Buffer)
				continue
			}
			wd.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.Handle,
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}}
		default:
			info := vk.DescriptorImageInfo{ImageLayout: vk.ImageLayoutGeneral}
			if w.Type != metadata.DescriptorTypeSampler {
				view, ok := vr.views.get(uint64(w.ImageView))
				if !ok {
					core.LogWarn("UpdateDescriptorSets skipped binding %d: unknown view %d", w.Binding, w.ImageView)
					continue
				}
				info.ImageView = view
			}
			if w.Type == metadata.DescriptorTypeSampler || w.Type == metadata.DescriptorTypeCombinedImageSampler {
				sampler, ok := vr.samplers.get(uint64(w.Sampler))
				if !ok {
					core.LogWarn("UpdateDescriptorSets skipped binding %d: unknown sampler %d", w.Binding, w.Sampler)
					continue
				}
				info.Sampler = sampler
			}
			wd.PImageInfo = []vk.DescriptorImageInfo{info}
		}
		vkWrites = append(vkWrites, wd)
	}
	if len(vkWrites) > 0 {
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
	}
}
