package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type bufferReplica struct {
	buffer metadata.BufferHandle
	memory metadata.MemoryHandle
	mapped []byte
}

// MultiBuffer is a host visible buffer duplicated once per frame in flight.
// Every replica stays mapped until Destroy.
type MultiBuffer struct {
	backend  RendererBackend
	name     string
	size     uint64
	usage    metadata.BufferUsage
	replicas []bufferReplica
}

// NewMultiBuffer creates count replicas of size bytes. If any replica fails
// the ones already created are released before returning.
func NewMultiBuffer(backend RendererBackend, name string, count int, size uint64, usage metadata.BufferUsage) (*MultiBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("multibuffer %s: replica count must be positive, got %d", name, count)
	}
	if size == 0 {
		return nil, fmt.Errorf("multibuffer %s: size must be greater than zero", name)
	}
	mb := &MultiBuffer{
		backend:  backend,
		name:     name,
		size:     size,
		usage:    usage,
		replicas: make([]bufferReplica, 0, count),
	}
	for i := 0; i < count; i++ {
		r, err := mb.createReplica()
		if err != nil {
			mb.Destroy()
			return nil, &AllocationError{Resource: "buffer " + name, Replica: i, Err: err}
		}
		mb.replicas = append(mb.replicas, r)
	}
	return mb, nil
}

func (mb *MultiBuffer) createReplica() (bufferReplica, error) {
	var r bufferReplica
	buf, err := mb.backend.CreateBuffer(mb.size, mb.usage)
	if err != nil {
		return r, err
	}
	req := mb.backend.BufferMemoryRequirements(buf)
	mem, err := mb.backend.AllocateMemory(req, metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
	if err != nil {
		mb.backend.DestroyBuffer(buf)
		return r, err
	}
	if err := mb.backend.BindBufferMemory(buf, mem); err != nil {
		mb.backend.DestroyBuffer(buf)
		mb.backend.FreeMemory(mem)
		return r, err
	}
	mapped, err := mb.backend.MapMemory(mem, mb.size)
	if err != nil {
		mb.backend.DestroyBuffer(buf)
		mb.backend.FreeMemory(mem)
		return r, err
	}
	return bufferReplica{buffer: buf, memory: mem, mapped: mapped}, nil
}

func (mb *MultiBuffer) Name() string {
	return mb.name
}

// Size is the byte size of each replica.
func (mb *MultiBuffer) Size() uint64 {
	return mb.size
}

func (mb *MultiBuffer) Usage() metadata.BufferUsage {
	return mb.usage
}

func (mb *MultiBuffer) Replicas() int {
	return len(mb.replicas)
}

func (mb *MultiBuffer) replica(i int) *bufferReplica {
	if i < 0 || i >= len(mb.replicas) {
		panic(fmt.Sprintf("multibuffer %s: replica %d out of range [0,%d)", mb.name, i, len(mb.replicas)))
	}
	return &mb.replicas[i]
}

// Buffer returns the buffer handle of replica i.
func (mb *MultiBuffer) Buffer(i int) metadata.BufferHandle {
	return mb.replica(i).buffer
}

// Mapped returns the host mapping of replica i. The slice is only valid
// until Destroy.
func (mb *MultiBuffer) Mapped(i int) []byte {
	return mb.replica(i).mapped
}

// Write copies data into replica i at offset.
func (mb *MultiBuffer) Write(i int, offset uint64, data []byte) error {
	dst := mb.replica(i).mapped
	if offset > uint64(len(dst)) || uint64(len(data)) > uint64(len(dst))-offset {
		return fmt.Errorf("multibuffer %s: %d bytes at offset %d into %d: %w", mb.name, len(data), offset, len(dst), ErrOutOfBounds)
	}
	copy(dst[offset:], data)
	return nil
}

// WriteFloats writes values as little endian 32 bit floats.
func (mb *MultiBuffer) WriteFloats(i int, offset uint64, values []float32) error {
	dst := mb.replica(i).mapped
	n := uint64(len(values)) * 4
	if offset > uint64(len(dst)) || n > uint64(len(dst))-offset {
		return fmt.Errorf("multibuffer %s: %d floats at offset %d into %d bytes: %w", mb.name, len(values), offset, len(dst), ErrOutOfBounds)
	}
	out := dst[offset:]
	for j, v := range values {
		binary.LittleEndian.PutUint32(out[j*4:], math.Float32bits(v))
	}
	return nil
}

// Destroy releases every replica in reverse creation order.
func (mb *MultiBuffer) Destroy() {
	for i := len(mb.replicas) - 1; i >= 0; i-- {
		r := mb.replicas[i]
		mb.backend.UnmapMemory(r.memory)
		mb.backend.DestroyBuffer(r.buffer)
		mb.backend.FreeMemory(r.memory)
	}
	mb.replicas = nil
}
