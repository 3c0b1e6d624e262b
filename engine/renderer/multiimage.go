package renderer

import (
	"fmt"

	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

// ImageReplica is one device local image with its memory and view.
type ImageReplica struct {
	Image  metadata.ImageHandle
	Memory metadata.MemoryHandle
	View   metadata.ImageViewHandle
}

// MultiImage is a device local image duplicated once per frame in flight.
// It is destroyed and recreated whenever the surface is resized.
type MultiImage struct {
	backend  RendererBackend
	name     string
	extent   metadata.Extent
	format   metadata.ImageFormat
	usage    metadata.ImageUsage
	replicas []ImageReplica
	// generation changes on every destroy so stale views can be detected
	generation uint64
	destroyed  bool
}

const defaultImageUsage = metadata.ImageUsageStorage | metadata.ImageUsageSampled | metadata.ImageUsageTransferSrc | metadata.ImageUsageTransferDst

// NewMultiImage creates count image replicas. A failure releases the
// replicas already created.
func NewMultiImage(backend RendererBackend, name string, count int, extent metadata.Extent, format metadata.ImageFormat) (*MultiImage, error) {
	if count <= 0 {
		return nil, fmt.Errorf("multiimage %s: replica count must be positive, got %d", name, count)
	}
	if extent.IsZero() {
		return nil, fmt.Errorf("multiimage %s: extent %s is empty", name, extent)
	}
	mi := &MultiImage{
		backend:  backend,
		name:     name,
		extent:   extent,
		format:   format,
		usage:    defaultImageUsage,
		replicas: make([]ImageReplica, 0, count),
	}
	for i := 0; i < count; i++ {
		r, err := mi.createReplica()
		if err != nil {
			mi.Destroy()
			return nil, &AllocationError{Resource: "image " + name, Replica: i, Err: err}
		}
		mi.replicas = append(mi.replicas, r)
	}
	return mi, nil
}

func (mi *MultiImage) createReplica() (ImageReplica, error) {
	var r ImageReplica
	img, err := mi.backend.CreateImage(mi.extent, mi.format, mi.usage)
	if err != nil {
		return r, err
	}
	mem, err := mi.backend.AllocateMemory(mi.backend.ImageMemoryRequirements(img), metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		mi.backend.DestroyImage(img)
		return r, err
	}
	if err := mi.backend.BindImageMemory(img, mem); err != nil {
		mi.backend.DestroyImage(img)
		mi.backend.FreeMemory(mem)
		return r, err
	}
	view, err := mi.backend.CreateImageView(img, mi.format)
	if err != nil {
		mi.backend.DestroyImage(img)
		mi.backend.FreeMemory(mem)
		return r, err
	}
	return ImageReplica{Image: img, Memory: mem, View: view}, nil
}

func (mi *MultiImage) Name() string {
	return mi.name
}

func (mi *MultiImage) Extent() metadata.Extent {
	return mi.extent
}

func (mi *MultiImage) Format() metadata.ImageFormat {
	return mi.format
}

func (mi *MultiImage) Replicas() int {
	return len(mi.replicas)
}

// Replica returns replica i. It panics when i is outside [0, Replicas()).
func (mi *MultiImage) Replica(i int) ImageReplica {
	if i < 0 || i >= len(mi.replicas) {
		panic(fmt.Sprintf("multiimage %s: replica %d out of range [0,%d)", mi.name, i, len(mi.replicas)))
	}
	return mi.replicas[i]
}

// Destroy releases every replica in reverse creation order. Views created
// with PreviousOf become unusable.
func (mi *MultiImage) Destroy() {
	for i := len(mi.replicas) - 1; i >= 0; i-- {
		r := mi.replicas[i]
		mi.backend.DestroyImageView(r.View)
		mi.backend.DestroyImage(r.Image)
		mi.backend.FreeMemory(r.Memory)
	}
	mi.replicas = nil
	mi.generation++
	mi.destroyed = true
}

// PreviousView exposes the replica written one frame earlier: replica i of
// the view is replica (i-1) mod R of the base. It owns nothing.
type PreviousView struct {
	base       *MultiImage
	generation uint64
}

// PreviousOf returns a previous frame view over img.
func PreviousOf(img *MultiImage) *PreviousView {
	return &PreviousView{base: img, generation: img.generation}
}

func (v *PreviousView) Base() *MultiImage {
	return v.base
}

func (v *PreviousView) Replicas() int {
	return v.base.Replicas()
}

// Replica returns the base replica preceding i. It panics when the base was
// destroyed after the view was taken.
func (v *PreviousView) Replica(i int) ImageReplica {
	if v.base.destroyed || v.base.generation != v.generation {
		panic(fmt.Sprintf("previous view of %s used after its base was destroyed", v.base.name))
	}
	n := len(v.base.replicas)
	if i < 0 || i >= n {
		panic(fmt.Sprintf("previous view of %s: replica %d out of range [0,%d)", v.base.name, i, n))
	}
	return v.base.Replica((i - 1 + n) % n)
}
