package core

import (
	"errors"
)

// Errors reported by device implementations. The frame scheduler only
// recovers from ErrSurfaceOutOfDate; everything else terminates the loop.
var (
	ErrSurfaceOutOfDate  = errors.New("surface out of date, swapchain must be recreated")
	ErrDeviceLost        = errors.New("device lost")
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	ErrOutOfHostMemory   = errors.New("out of host memory")
	ErrOutOfPoolMemory   = errors.New("out of descriptor pool memory")
	ErrUnknown           = errors.New("unknown")
)
