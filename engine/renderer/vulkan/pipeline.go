package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief Push constant range, nil when the shader declares none. */
	PushConstants *metadata.PushConstantRange
}

func (vr *VulkanRenderer) CreateComputePipeline(config *metadata.ComputePipelineConfig) (metadata.PipelineHandle, error) {
	entryPoint := config.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}

	setLayouts := make([]vk.DescriptorSetLayout, len(config.SetLayouts))
	for i, h := range config.SetLayouts {
		l, ok := vr.setLayouts.get(uint64(h))
		if !ok {
			return 0, fmt.Errorf("%s: unknown set layout %d at set %d", config.Name, h, i)
		}
		setLayouts[i] = l
	}

	pipeline, err := NewComputePipeline(vr.context, config.Code, entryPoint, setLayouts, config.PushConstants)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.Name, err)
	}
	core.LogDebug("compute pipeline %s created with %d set layouts", config.Name, len(setLayouts))
	return metadata.PipelineHandle(vr.pipelines.put(pipeline)), nil
}

func (vr *VulkanRenderer) DestroyComputePipeline(pipeline metadata.PipelineHandle) {
	p, ok := vr.pipelines.take(uint64(pipeline))
	if !ok {
		core.LogWarn("DestroyComputePipeline called with unknown pipeline %d", pipeline)
		return
	}
	p.Destroy(vr.context)
}

func NewComputePipeline(context *VulkanContext, code []uint32, entryPoint string, setLayouts []vk.DescriptorSetLayout, push *metadata.PushConstantRange) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{PushConstants: push}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	// Push constants
	if push != nil && push.Size > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     push.Offset,
			Size:       push.Size,
		}}
	}

	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		return nil, resultError("vkCreatePipelineLayout", res)
	}
	outPipeline.PipelineLayout = pipelineLayout

	stage, err := NewComputeShaderStage(context, code, entryPoint)
	if err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}
	// Not needed once the pipeline is built.
	defer stage.Destroy(context)

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage.ShaderStageCreateInfo,
		Layout: outPipeline.PipelineLayout,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines); res != vk.Success {
		outPipeline.Destroy(context)
		return nil, resultError("vkCreateComputePipelines", res)
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Compute pipeline created!")
	return outPipeline, nil
}

func (vp *VulkanPipeline) Destroy(context *VulkanContext) {
	// Destroy pipeline
	if vp.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, vp.Handle, context.Allocator)
		vp.Handle = vk.NullPipeline
	}
	// Destroy layout
	if vp.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, vp.PipelineLayout, context.Allocator)
		vp.PipelineLayout = vk.NullPipelineLayout
	}
}

type boundSet struct {
	index  uint32
	handle vk.DescriptorSet
}

// Bind records the pipeline and its descriptor sets. sets is sorted by
// index; every run of consecutive indices is bound with one call.
func (vp *VulkanPipeline) Bind(cb *VulkanCommandBuffer, sets []boundSet) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointCompute, vp.Handle)
	for start := 0; start < len(sets); {
		end := start + 1
		for end < len(sets) && sets[end].index == sets[end-1].index+1 {
			end++
		}
		run := make([]vk.DescriptorSet, 0, end-start)
		for _, s := range sets[start:end] {
			run = append(run, s.handle)
		}
		vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointCompute, vp.PipelineLayout, sets[start].index, uint32(len(run)), run, 0, nil)
		start = end
	}
}
