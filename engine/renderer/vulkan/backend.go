package vulkan

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/platform"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type VulkanRenderer struct {
	platform *platform.Platform
	config   metadata.RendererBackendConfig
	context  *VulkanContext
	locks    *VulkanLockPool

	ids        atomic.Uint64
	buffers    *handleTable[*VulkanBuffer]
	images     *handleTable[*VulkanImage]
	views      *handleTable[vk.ImageView]
	samplers   *handleTable[vk.Sampler]
	memory     *handleTable[*VulkanMemory]
	pools      *handleTable[vk.DescriptorPool]
	setLayouts *handleTable[vk.DescriptorSetLayout]
	sets       *handleTable[*VulkanDescriptorSet]
	pipelines  *handleTable[*VulkanPipeline]
}

func New(p *platform.Platform, config metadata.RendererBackendConfig) *VulkanRenderer {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = 2
	}
	vr := &VulkanRenderer{
		platform: p,
		config:   config,
		context: &VulkanContext{
			Allocator: nil,
			Device: &VulkanDevice{
				ComputeQueueIndex: -1,
				PresentQueueIndex: -1,
			},
		},
		locks: NewVulkanLockPool(),
	}
	vr.buffers = newHandleTable[*VulkanBuffer](BufferManagement, vr.locks, &vr.ids)
	vr.images = newHandleTable[*VulkanImage](ImageManagement, vr.locks, &vr.ids)
	vr.views = newHandleTable[vk.ImageView](ImageManagement, vr.locks, &vr.ids)
	vr.samplers = newHandleTable[vk.Sampler](SamplerManagement, vr.locks, &vr.ids)
	vr.memory = newHandleTable[*VulkanMemory](MemoryManagement, vr.locks, &vr.ids)
	vr.pools = newHandleTable[vk.DescriptorPool](DescriptorManagement, vr.locks, &vr.ids)
	vr.setLayouts = newHandleTable[vk.DescriptorSetLayout](DescriptorManagement, vr.locks, &vr.ids)
	vr.sets = newHandleTable[*VulkanDescriptorSet](DescriptorManagement, vr.locks, &vr.ids)
	vr.pipelines = newHandleTable[*VulkanPipeline](PipelineManagement, vr.locks, &vr.ids)
	return vr
}

func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	extent := vr.platform.FramebufferSize()
	vr.context.FramebufferWidth = extent.Width
	vr.context.FramebufferHeight = extent.Height

	if err := vr.createInstance(); err != nil {
		return err
	}

	// Debugger
	if vr.config.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		return fmt.Errorf("vulkan surface creation failed: %w", err)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(vr.context); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	vr.locks.SetQueueFamily(uint32(vr.context.Device.ComputeQueueIndex))
	vr.locks.SetQueueFamily(uint32(vr.context.Device.PresentQueueIndex))

	// Swapchain
	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc
	vr.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)

	vr.context.FramesInFlight = vr.config.FramesInFlight
	if sc.ImageCount > 0 && sc.ImageCount < vr.context.FramesInFlight {
		vr.context.FramesInFlight = sc.ImageCount
	}
	core.LogInfo("Frames in flight: %d", vr.context.FramesInFlight)

	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.ApplicationName),
		PEngineName:        VulkanSafeString("Spectra"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vr.platform.RequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredLayers []string
	if vr.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)

		// Validation layers are only enabled when they exist.
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := instanceLayers()
		if err != nil {
			return err
		}
		if _, ok := available["VK_LAYER_KHRONOS_validation"]; ok {
			requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
			core.LogInfo("All required validation layers are present.")
		} else {
			core.LogWarn("Required validation layer is missing: VK_LAYER_KHRONOS_validation")
		}
	}
	for _, e := range requiredExtensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		return resultError("vkCreateInstance", res)
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func instanceLayers() (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	out := make(map[string]struct{}, count)
	for i := range layers {
		layers[i].Deref()
		out[cString(layers[i].LayerName[:])] = struct{}{}
	}
	return out, nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.context.ComputeCommandBuffers = make([]*VulkanCommandBuffer, vr.context.FramesInFlight)
	for i := range vr.context.ComputeCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.ComputeCommandPool)
		if err != nil {
			return err
		}
		vr.context.ComputeCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	n := vr.context.FramesInFlight
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, n)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, n)
	vr.context.InFlightFences = make([]*VulkanFence, n)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < n; i++ {
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			return resultError("vkCreateSemaphore", res)
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			return resultError("vkCreateSemaphore", res)
		}

		// Create the fence in a signaled state, so the first frame of a slot
		// does not wait for a submission that never happened.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = f
	}
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
		vr.destroyLeaked()

		// Sync objects
		for i := range vr.context.InFlightFences {
			if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
			}
			if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
				vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
			}
			if vr.context.InFlightFences[i] != nil {
				vr.context.InFlightFences[i].FenceDestroy(vr.context)
			}
		}
		vr.context.ImageAvailableSemaphores = nil
		vr.context.QueueCompleteSemaphores = nil
		vr.context.InFlightFences = nil
		vr.context.ImagesInFlight = nil

		// Command buffers
		for _, cb := range vr.context.ComputeCommandBuffers {
			if cb != nil && cb.Handle != nil {
				cb.Free(vr.context, vr.context.Device.ComputeCommandPool)
			}
		}
		vr.context.ComputeCommandBuffers = nil

		if vr.context.Swapchain != nil {
			vr.context.Swapchain.SwapchainDestroy(vr.context)
		}

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vr.context)
	}

	if vr.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}

	if vr.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}
	return nil
}

// destroyLeaked releases objects their owners never destroyed, so the
// device can go away cleanly.
func (vr *VulkanRenderer) destroyLeaked() {
	device := vr.context.Device.LogicalDevice
	leaked := 0
	for _, p := range vr.pipelines.drain() {
		p.Destroy(vr.context)
		leaked++
	}
	vr.sets.drain()
	for _, p := range vr.pools.drain() {
		vk.DestroyDescriptorPool(device, p, vr.context.Allocator)
		leaked++
	}
	for _, l := range vr.setLayouts.drain() {
		vk.DestroyDescriptorSetLayout(device, l, vr.context.Allocator)
		leaked++
	}
	for _, s := range vr.samplers.drain() {
		vk.DestroySampler(device, s, vr.context.Allocator)
		leaked++
	}
	for _, v := range vr.views.drain() {
		vk.DestroyImageView(device, v, vr.context.Allocator)
		leaked++
	}
	for _, img := range vr.images.drain() {
		vk.DestroyImage(device, img.Handle, vr.context.Allocator)
		leaked++
	}
	for _, b := range vr.buffers.drain() {
		vk.DestroyBuffer(device, b.Handle, vr.context.Allocator)
		leaked++
	}
	for _, m := range vr.memory.drain() {
		vk.FreeMemory(device, m.Handle, vr.context.Allocator)
		leaked++
	}
	if leaked > 0 {
		core.LogWarn("Vulkan renderer destroyed %d objects that were still alive at shutdown", leaked)
	}
}

func (vr *VulkanRenderer) FramesInFlight() uint32 {
	return vr.context.FramesInFlight
}

func (vr *VulkanRenderer) SurfaceExtent() metadata.Extent {
	return vr.platform.FramebufferSize()
}

func (vr *VulkanRenderer) slot(frame uint64) uint32 {
	return uint32(frame % uint64(vr.context.FramesInFlight))
}

func (vr *VulkanRenderer) BeginFrame(frame uint64) error {
	// Wait for the execution of the previous frame of this slot to complete.
	return vr.context.InFlightFences[vr.slot(frame)].FenceWait(vr.context, math.MaxUint64)
}

func (vr *VulkanRenderer) EndFrame(frame uint64, sub *metadata.FrameSubmission) error {
	slot := vr.slot(frame)
	sc := vr.context.Swapchain
	if sc == nil || sc.Handle == vk.NullSwapchain {
		return fmt.Errorf("no swapchain to present to: %w", core.ErrSurfaceOutOfDate)
	}

	// Acquire the next image from the swap chain. The semaphore is signaled
	// once the image is free and the submission waits on it.
	imageIndex, err := sc.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, vr.context.ImageAvailableSemaphores[slot], vk.NullFence)
	if err != nil {
		return err
	}
	vr.context.ImageIndex = imageIndex

	fence := vr.context.InFlightFences[slot]

	// Make sure the previous frame is not using this image.
	if inFlight := vr.context.ImagesInFlight[imageIndex]; inFlight != nil && inFlight != fence {
		if err := inFlight.FenceWait(vr.context, math.MaxUint64); err != nil {
			return err
		}
	}
	// Mark the image fence as in-use by this frame.
	vr.context.ImagesInFlight[imageIndex] = fence

	cb := vr.context.ComputeCommandBuffers[slot]
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(true); err != nil {
		return err
	}
	if err := vr.record(cb, sub, sc.Images[imageIndex], sc.Extent); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return err
	}

	if err := fence.FenceReset(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		// The dispatch may start before the image is free, only the blit waits.
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[slot]},
	}
	err = vr.locks.SafeQueueCall(uint32(vr.context.Device.ComputeQueueIndex), func() error {
		return resultError("vkQueueSubmit", vk.QueueSubmit(vr.context.Device.ComputeQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle))
	})
	if err != nil {
		return err
	}
	cb.UpdateSubmitted()

	// Give the image back to the swapchain.
	return vr.locks.SafeQueueCall(uint32(vr.context.Device.PresentQueueIndex), func() error {
		return sc.SwapchainPresent(vr.context, vr.context.Device.PresentQueue, vr.context.QueueCompleteSemaphores[slot], imageIndex)
	})
}

// record writes the dispatch and the copy of the present image into the
// acquired swapchain image. Storage images live in the general layout and
// only leave it around the blit.
func (vr *VulkanRenderer) record(cb *VulkanCommandBuffer, sub *metadata.FrameSubmission, target vk.Image, targetExtent vk.Extent2D) error {
	pipeline, ok := vr.pipelines.get(uint64(sub.Pipeline))
	if !ok {
		return fmt.Errorf("frame submission names unknown pipeline %d", sub.Pipeline)
	}
	sets := make([]boundSet, len(sub.DescriptorSets))
	for i, b := range sub.DescriptorSets {
		s, ok := vr.sets.get(uint64(b.Set))
		if !ok {
			return fmt.Errorf("frame submission names unknown descriptor set %d", b.Set)
		}
		sets[i] = boundSet{index: b.Index, handle: s.Handle}
	}

	for _, h := range sub.Images {
		img, ok := vr.images.get(uint64(h))
		if !ok {
			return fmt.Errorf("frame submission names unknown image %d", h)
		}
		if img.Layout != vk.ImageLayoutGeneral {
			transitionImage(cb.Handle, img.Handle, img.Layout, vk.ImageLayoutGeneral, vk.PipelineStageTopOfPipeBit, vk.PipelineStageComputeShaderBit)
			img.Layout = vk.ImageLayoutGeneral
		}
	}

	pipeline.Bind(cb, sets)
	if len(sub.PushConstants) > 0 {
		push := make([]byte, len(sub.PushConstants))
		copy(push, sub.PushConstants)
		vk.CmdPushConstants(cb.Handle, pipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, uint32(len(push)), unsafe.Pointer(&push[0]))
	}
	vk.CmdDispatch(cb.Handle, sub.Dispatch[0], sub.Dispatch[1], sub.Dispatch[2])

	if sub.Present == 0 {
		transitionImage(cb.Handle, target, vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc, vk.PipelineStageTransferBit, vk.PipelineStageBottomOfPipeBit)
		return nil
	}

	src, ok := vr.images.get(uint64(sub.Present))
	if !ok {
		return fmt.Errorf("frame submission presents unknown image %d", sub.Present)
	}
	transitionImage(cb.Handle, src.Handle, vk.ImageLayoutGeneral, vk.ImageLayoutTransferSrcOptimal, vk.PipelineStageComputeShaderBit, vk.PipelineStageTransferBit)
	transitionImage(cb.Handle, target, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)

	subresource := vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	blit := vk.ImageBlit{
		SrcSubresource: subresource,
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(src.Width), Y: int32(src.Height), Z: 1},
		},
		DstSubresource: subresource,
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(targetExtent.Width), Y: int32(targetExtent.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(cb.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, target, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterNearest)

	transitionImage(cb.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutGeneral, vk.PipelineStageTransferBit, vk.PipelineStageComputeShaderBit)
	transitionImage(cb.Handle, target, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc, vk.PipelineStageTransferBit, vk.PipelineStageBottomOfPipeBit)
	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device.LogicalDevice == nil {
		return nil
	}
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(vr.context.Device.LogicalDevice))
}

// RecreateSwapchain rebuilds the swapchain for extent. A minimized window
// gives a zero extent and no swapchain until the next call.
func (vr *VulkanRenderer) RecreateSwapchain(extent metadata.Extent) (metadata.Extent, error) {
	if err := vr.WaitIdle(); err != nil {
		return metadata.Extent{}, err
	}

	// Clear these out, no fence guards a new image yet.
	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	var sc *VulkanSwapchain
	var err error
	if vr.context.Swapchain == nil {
		sc, err = SwapchainCreate(vr.context, extent.Width, extent.Height)
	} else {
		sc, err = vr.context.Swapchain.SwapchainRecreate(vr.context, extent.Width, extent.Height)
	}
	if err != nil {
		vr.context.Swapchain = nil
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			return metadata.Extent{}, err
		}
		return metadata.Extent{}, fmt.Errorf("failed to recreate the swapchain: %w", err)
	}
	vr.context.Swapchain = sc
	vr.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)

	if sc.Handle == vk.NullSwapchain {
		core.LogDebug("Swapchain recreation deferred, surface is %dx%d.", sc.Extent.Width, sc.Extent.Height)
		return metadata.Extent{}, nil
	}

	// Sync the framebuffer size with the swapchain.
	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height
	core.LogInfo("Swapchain recreated at %dx%d.", sc.Extent.Width, sc.Extent.Height)
	return metadata.Extent{Width: sc.Extent.Width, Height: sc.Extent.Height}, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
