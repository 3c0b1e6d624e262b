package metadata

/** @brief How a buffer is going to be used. */
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageTransferSrc
	BufferUsageTransferDst
)
