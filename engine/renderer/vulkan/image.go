package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Format vk.Format
	Width  uint32
	Height uint32
	// Layout the image is in once previously recorded commands have run.
	Layout vk.ImageLayout
}

var imageFormats = map[metadata.ImageFormat]vk.Format{
	metadata.ImageFormatRGBA8Unorm:  vk.FormatR8g8b8a8Unorm,
	metadata.ImageFormatRGBA8Snorm:  vk.FormatR8g8b8a8Snorm,
	metadata.ImageFormatRGBA16Float: vk.FormatR16g16b16a16Sfloat,
	metadata.ImageFormatRGBA32Float: vk.FormatR32g32b32a32Sfloat,
	metadata.ImageFormatRG16Float:   vk.FormatR16g16Sfloat,
	metadata.ImageFormatRG32Float:   vk.FormatR32g32Sfloat,
	metadata.ImageFormatR16Float:    vk.FormatR16Sfloat,
	metadata.ImageFormatR32Float:    vk.FormatR32Sfloat,
	metadata.ImageFormatR32Uint:     vk.FormatR32Uint,
	metadata.ImageFormatR32Sint:     vk.FormatR32Sint,
	metadata.ImageFormatRGBA32Uint:  vk.FormatR32g32b32a32Uint,
	metadata.ImageFormatBGRA8Unorm:  vk.FormatB8g8r8a8Unorm,
}

func vulkanFormat(f metadata.ImageFormat) (vk.Format, error) {
	format, ok := imageFormats[f]
	if !ok {
		return vk.FormatUndefined, fmt.Errorf("image format %d has no Vulkan equivalent: %w", f, core.ErrUnknown)
	}
	return format, nil
}

func vulkanImageUsage(u metadata.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if u&metadata.ImageUsageStorage != 0 {
		flags |= vk.ImageUsageStorageBit
	}
	if u&metadata.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if u&metadata.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if u&metadata.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	return vk.ImageUsageFlags(flags)
}

var colorSubresourceRange = vk.ImageSubresourceRange{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}

func (vr *VulkanRenderer) CreateImage(extent metadata.Extent, format metadata.ImageFormat, usage metadata.ImageUsage) (metadata.ImageHandle, error) {
	vkFormat, err := vulkanFormat(format)
	if err != nil {
		return 0, err
	}
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        vkFormat,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vulkanImageUsage(usage),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var handle vk.Image
	if res := vk.CreateImage(vr.context.Device.LogicalDevice, &imageCreateInfo, vr.context.Allocator, &handle); res != vk.Success {
		return 0, resultError("vkCreateImage", res)
	}
	img := &VulkanImage{
		Handle: handle,
		Format: vkFormat,
		Width:  extent.Width,
		Height: extent.Height,
		Layout: vk.ImageLayoutUndefined,
	}
	return metadata.ImageHandle(vr.images.put(img)), nil
}

func (vr *VulkanRenderer) DestroyImage(image metadata.ImageHandle) {
	img, ok := vr.images.take(uint64(image))
	if !ok {
		core.LogWarn("DestroyImage called with unknown image %d", image)
		return
	}
	vk.DestroyImage(vr.context.Device.LogicalDevice, img.Handle, vr.context.Allocator)
}

func (vr *VulkanRenderer) ImageMemoryRequirements(image metadata.ImageHandle) metadata.MemoryRequirements {
	img, ok := vr.images.get(uint64(image))
	if !ok {
		return metadata.MemoryRequirements{}
	}
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vr.context.Device.LogicalDevice, img.Handle, &req)
	req.Deref()
	return metadata.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (vr *VulkanRenderer) BindImageMemory(image metadata.ImageHandle, memory metadata.MemoryHandle) error {
	img, ok := vr.images.get(uint64(image))
	if !ok {
		return fmt.Errorf("bind image memory: unknown image %d", image)
	}
	mem, ok := vr.memory.get(uint64(memory))
	if !ok {
		return fmt.Errorf("bind image memory: unknown memory %d", memory)
	}
	if res := vk.BindImageMemory(vr.context.Device.LogicalDevice, img.Handle, mem.Handle, 0); res != vk.Success {
		return resultError("vkBindImageMemory", res)
	}
	return vr.clearImage(img)
}

// clearImage moves a freshly bound image into the general layout and zeroes
// it, so a previous-frame view reads defined data on the first frame.
func (vr *VulkanRenderer) clearImage(img *VulkanImage) error {
	pool := vr.context.Device.ComputeCommandPool
	cb, err := AllocateAndBeginSingleUse(vr.context, pool)
	if err != nil {
		return err
	}
	transitionImage(cb.Handle, img.Handle, img.Layout, vk.ImageLayoutGeneral, vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit)
	var clear vk.ClearColorValue
	vk.CmdClearColorImage(cb.Handle, img.Handle, vk.ImageLayoutGeneral, &clear, 1, []vk.ImageSubresourceRange{colorSubresourceRange})
	err = vr.locks.SafeQueueCall(uint32(vr.context.Device.ComputeQueueIndex), func() error {
		return cb.EndSingleUse(vr.context, pool, vr.context.Device.ComputeQueue)
	})
	if err != nil {
		return err
	}
	img.Layout = vk.ImageLayoutGeneral
	return nil
}

func (vr *VulkanRenderer) CreateImageView(image metadata.ImageHandle, format metadata.ImageFormat) (metadata.ImageViewHandle, error) {
	img, ok := vr.images.get(uint64(image))
	if !ok {
		return 0, fmt.Errorf("create image view: unknown image %d", image)
	}
	vkFormat, err := vulkanFormat(format)
	if err != nil {
		return 0, err
	}
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img.Handle,
		ViewType:         vk.ImageViewType2d,
		Format:           vkFormat,
		SubresourceRange: colorSubresourceRange,
	}
	var view vk.ImageView
	if res := vk.CreateImageView(vr.context.Device.LogicalDevice, &viewCreateInfo, vr.context.Allocator, &view); res != vk.Success {
		return 0, resultError("vkCreateImageView", res)
	}
	return metadata.ImageViewHandle(vr.views.put(view)), nil
}

func (vr *VulkanRenderer) DestroyImageView(view metadata.ImageViewHandle) {
	v, ok := vr.views.take(uint64(view))
	if !ok {
		core.LogWarn("DestroyImageView called with unknown view %d", view)
		return
	}
	vk.DestroyImageView(vr.context.Device.LogicalDevice, v, vr.context.Allocator)
}

// CreateSampler creates the linear, clamp to edge sampler every sampled
// binding uses.
func (vr *VulkanRenderer) CreateSampler() (metadata.SamplerHandle, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(vr.context.Device.LogicalDevice, &samplerCreateInfo, vr.context.Allocator, &sampler); res != vk.Success {
		return 0, resultError("vkCreateSampler", res)
	}
	return metadata.SamplerHandle(vr.samplers.put(sampler)), nil
}

func (vr *VulkanRenderer) DestroySampler(sampler metadata.SamplerHandle) {
	s, ok := vr.samplers.take(uint64(sampler))
	if !ok {
		core.LogWarn("DestroySampler called with unknown sampler %d", sampler)
		return
	}
	vk.DestroySampler(vr.context.Device.LogicalDevice, s, vr.context.Allocator)
}

// transitionImage records a layout change. Compute writes and transfers are
// the only accesses the frame makes, so both sides cover them.
func transitionImage(cb vk.CommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout, srcStage, dstStage vk.PipelineStageFlagBits) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    colorSubresourceRange,
		SrcAccessMask:       accessFor(srcStage, true),
		DstAccessMask:       accessFor(dstStage, false),
	}
	vk.CmdPipelineBarrier(
		cb,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)
}

func accessFor(stage vk.PipelineStageFlagBits, src bool) vk.AccessFlags {
	switch stage {
	case vk.PipelineStageComputeShaderBit:
		if src {
			return vk.AccessFlags(vk.AccessShaderWriteBit)
		}
		return vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)
	case vk.PipelineStageTransferBit:
		return vk.AccessFlags(vk.AccessTransferWriteBit | vk.AccessTransferReadBit)
	}
	return 0
}
