package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Size   uint64
}

type VulkanMemory struct {
	Handle vk.DeviceMemory
	Size   uint64
	Mapped bool
}

func vulkanBufferUsage(u metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u&metadata.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if u&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func vulkanMemoryProperties(p metadata.MemoryProperty) uint32 {
	var flags vk.MemoryPropertyFlagBits
	if p&metadata.MemoryPropertyDeviceLocal != 0 {
		flags |= vk.MemoryPropertyDeviceLocalBit
	}
	if p&metadata.MemoryPropertyHostVisible != 0 {
		flags |= vk.MemoryPropertyHostVisibleBit
	}
	if p&metadata.MemoryPropertyHostCoherent != 0 {
		flags |= vk.MemoryPropertyHostCoherentBit
	}
	return uint32(flags)
}

func (vr *VulkanRenderer) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.BufferHandle, error) {
	if size == 0 {
		return 0, fmt.Errorf("create buffer: size must be positive")
	}
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vulkanBufferUsage(usage),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(vr.context.Device.LogicalDevice, &bufferCreateInfo, vr.context.Allocator, &handle); res != vk.Success {
		return 0, resultError("vkCreateBuffer", res)
	}
	return metadata.BufferHandle(vr.buffers.put(&VulkanBuffer{Handle: handle, Size: size})), nil
}

func (vr *VulkanRenderer) DestroyBuffer(buffer metadata.BufferHandle) {
	b, ok := vr.buffers.take(uint64(buffer))
	if !ok {
		core.LogWarn("DestroyBuffer called with unknown buffer %d", buffer)
		return
	}
	vk.DestroyBuffer(vr.context.Device.LogicalDevice, b.Handle, vr.context.Allocator)
}

func (vr *VulkanRenderer) BufferMemoryRequirements(buffer metadata.BufferHandle) metadata.MemoryRequirements {
	b, ok := vr.buffers.get(uint64(buffer))
	if !ok {
		return metadata.MemoryRequirements{}
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vr.context.Device.LogicalDevice, b.Handle, &req)
	req.Deref()
	return metadata.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (vr *VulkanRenderer) AllocateMemory(req metadata.MemoryRequirements, props metadata.MemoryProperty) (metadata.MemoryHandle, error) {
	index := vr.context.FindMemoryIndex(req.TypeBits, vulkanMemoryProperties(props))
	if index == -1 {
		return 0, fmt.Errorf("no memory type matches type bits %#x: %w", req.TypeBits, core.ErrOutOfDeviceMemory)
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(req.Size),
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vr.context.Device.LogicalDevice, &allocateInfo, vr.context.Allocator, &memory); res != vk.Success {
		return 0, resultError("vkAllocateMemory", res)
	}
	return metadata.MemoryHandle(vr.memory.put(&VulkanMemory{Handle: memory, Size: req.Size})), nil
}

func (vr *VulkanRenderer) FreeMemory(memory metadata.MemoryHandle) {
	m, ok := vr.memory.take(uint64(memory))
	if !ok {
		core.LogWarn("FreeMemory called with unknown memory %d", memory)
		return
	}
	// Freeing implicitly unmaps.
	vk.FreeMemory(vr.context.Device.LogicalDevice, m.Handle, vr.context.Allocator)
}

func (vr *VulkanRenderer) BindBufferMemory(buffer metadata.BufferHandle, memory metadata.MemoryHandle) error {
	b, ok := vr.buffers.get(uint64(buffer))
	if !ok {
		return fmt.Errorf("bind buffer memory: unknown buffer %d", buffer)
	}
	m, ok := vr.memory.get(uint64(memory))
	if !ok {
		return fmt.Errorf("bind buffer memory: unknown memory %d", memory)
	}
	if res := vk.BindBufferMemory(vr.context.Device.LogicalDevice, b.Handle, m.Handle, 0); res != vk.Success {
		return resultError("vkBindBufferMemory", res)
	}
	return nil
}

// MapMemory maps the first size bytes of host visible memory. The slice
// aliases device memory and is valid until UnmapMemory or FreeMemory.
func (vr *VulkanRenderer) MapMemory(memory metadata.MemoryHandle, size uint64) ([]byte, error) {
	m, ok := vr.memory.get(uint64(memory))
	if !ok {
		return nil, fmt.Errorf("map memory: unknown memory %d", memory)
	}
	if size > m.Size {
		return nil, fmt.Errorf("map memory: %d bytes requested from a %d byte allocation", size, m.Size)
	}
	var ptr unsafe.Pointer
	if res := vk.MapMemory(vr.context.Device.LogicalDevice, m.Handle, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
		return nil, resultError("vkMapMemory", res)
	}
	m.Mapped = true
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (vr *VulkanRenderer) UnmapMemory(memory metadata.MemoryHandle) {
	m, ok := vr.memory.get(uint64(memory))
	if !ok || !m.Mapped {
		return
	}
	vk.UnmapMemory(vr.context.Device.LogicalDevice, m.Handle)
	m.Mapped = false
}
