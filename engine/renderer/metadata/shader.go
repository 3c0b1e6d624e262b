package metadata

/** @brief The push constant byte range of a pipeline. */
type PushConstantRange struct {
	Offset uint32
	Size   uint32
}

/** @brief Configuration of a compute pipeline. */
type ComputePipelineConfig struct {
	/** @brief Name used in diagnostics. */
	Name string
	/** @brief Entry point, defaults to main. */
	EntryPoint string
	/** @brief SPIR-V words. */
	Code []uint32
	/** @brief Set layouts in set index order, without gaps. Unused indices hold an empty layout. */
	SetLayouts []DescriptorSetLayoutHandle
	/** @brief Push constant range, nil when the shader declares none. */
	PushConstants *PushConstantRange
}
