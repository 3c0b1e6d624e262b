package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/spectra/engine/core"
)

var (
	// ErrOutOfBounds is returned by writes past the end of a replica.
	ErrOutOfBounds = errors.New("write out of bounds")
	// ErrFieldNotFound is returned when a push constant field has no value.
	ErrFieldNotFound = errors.New("push constant field not found")
	// ErrUnknownField is returned for a push constant name the shader lacks.
	ErrUnknownField = errors.New("unknown push constant field")
	// ErrTypeMismatch is returned when a push value does not match its field.
	ErrTypeMismatch = errors.New("push constant type mismatch")
	// ErrTerminated is returned by a scheduler after a fatal device error.
	ErrTerminated = errors.New("scheduler terminated")
)

// AllocationError reports device memory or descriptor pool exhaustion while
// creating a resource. Nothing is retried.
type AllocationError struct {
	Resource string
	Replica  int
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %s replica %d: %v", e.Resource, e.Replica, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// DeviceError reports a failed submission or presentation.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error during %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Recoverable reports whether the error is handled by recreating the
// swapchain. Everything else terminates the scheduler.
func (e *DeviceError) Recoverable() bool {
	return errors.Is(e.Err, core.ErrSurfaceOutOfDate)
}
