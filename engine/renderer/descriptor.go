package renderer

import (
	"fmt"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

// SetLayout is the device layout of one set index of a binding table.
// Sources lines up with Bindings.
type SetLayout struct {
	Index    uint32
	Handle   metadata.DescriptorSetLayoutHandle
	Bindings []metadata.DescriptorSetLayoutBinding
	Sources  []*layout.Binding
}

// DescriptorAllocator owns one descriptor pool and the set layouts of every
// binding table it was built for.
type DescriptorAllocator struct {
	backend  RendererBackend
	replicas int
	pool     metadata.DescriptorPoolHandle
	tables   map[*layout.Layout][]*SetLayout
	order    []*layout.Layout
}

// DescriptorType maps a binding kind to the descriptor type it occupies.
func DescriptorType(k layout.Kind) (metadata.DescriptorType, bool) {
	switch k {
	case layout.KindStorageImage:
		return metadata.DescriptorTypeStorageImage, true
	case layout.KindSampledImage:
		return metadata.DescriptorTypeSampledImage, true
	case layout.KindCombinedImageSampler:
		return metadata.DescriptorTypeCombinedImageSampler, true
	case layout.KindSampler:
		return metadata.DescriptorTypeSampler, true
	case layout.KindUniformBuffer:
		return metadata.DescriptorTypeUniformBuffer, true
	case layout.KindStorageBuffer:
		return metadata.DescriptorTypeStorageBuffer, true
	}
	return 0, false
}

// NewDescriptorAllocator creates one set layout per distinct set index of
// every table and a pool holding, per descriptor type, the count across all
// tables times replicas. Indices without descriptors get no layout; filling
// pipeline layout gaps is left to the pipeline owner.
func NewDescriptorAllocator(backend RendererBackend, tables []*layout.Layout, replicas int) (*DescriptorAllocator, error) {
	if replicas <= 0 {
		return nil, fmt.Errorf("descriptor allocator: replica count must be positive, got %d", replicas)
	}
	a := &DescriptorAllocator{
		backend:  backend,
		replicas: replicas,
		tables:   make(map[*layout.Layout][]*SetLayout, len(tables)),
	}

	counts := make(map[metadata.DescriptorType]uint32)
	var typeOrder []metadata.DescriptorType
	var layoutCount uint32

	for _, table := range tables {
		sets, err := a.createSetLayouts(table)
		if err != nil {
			a.Destroy()
			return nil, err
		}
		a.tables[table] = sets
		a.order = append(a.order, table)
		layoutCount += uint32(len(sets))

		for _, s := range sets {
			for _, b := range s.Bindings {
				if _, ok := counts[b.Type]; !ok {
					typeOrder = append(typeOrder, b.Type)
				}
				counts[b.Type] += b.Count
			}
		}
	}

	if layoutCount == 0 {
		return a, nil
	}

	sizes := make([]metadata.DescriptorPoolSize, 0, len(typeOrder))
	for _, t := range typeOrder {
		sizes = append(sizes, metadata.DescriptorPoolSize{Type: t, Count: counts[t] * uint32(replicas)})
	}
	pool, err := backend.CreateDescriptorPool(sizes, layoutCount*uint32(replicas))
	if err != nil {
		a.Destroy()
		return nil, &AllocationError{Resource: "descriptor pool", Err: err}
	}
	a.pool = pool
	core.LogDebug("descriptor pool: %d set layouts x %d replicas, sizes %v", layoutCount, replicas, sizes)
	return a, nil
}

func (a *DescriptorAllocator) createSetLayouts(table *layout.Layout) ([]*SetLayout, error) {
	var sets []*SetLayout
	for _, s := range table.Sets {
		descriptors := s.Descriptors()
		if len(descriptors) == 0 {
			continue
		}
		sl := &SetLayout{Index: s.Index}
		for _, b := range descriptors {
			t, ok := DescriptorType(b.Kind)
			if !ok {
				a.destroyLayouts(sets)
				return nil, &layout.Error{
					Kind:    layout.Unsupported,
					Shader:  table.Shader,
					Name:    b.Name,
					Set:     b.Set,
					Binding: b.Binding,
					Detail:  fmt.Sprintf("%s cannot be bound as a descriptor", declType(b)),
				}
			}
			if !b.HasBinding {
				a.destroyLayouts(sets)
				return nil, &layout.Error{
					Kind:   layout.MissingBinding,
					Shader: table.Shader,
					Name:   b.Name,
					Set:    b.Set,
				}
			}
			sl.Bindings = append(sl.Bindings, metadata.DescriptorSetLayoutBinding{Binding: b.Binding, Type: t, Count: 1})
			sl.Sources = append(sl.Sources, b)
		}
		h, err := a.backend.CreateDescriptorSetLayout(sl.Bindings)
		if err != nil {
			a.destroyLayouts(sets)
			return nil, fmt.Errorf("%s: failed to create layout for set %d: %w", table.Shader, s.Index, err)
		}
		sl.Handle = h
		sets = append(sets, sl)
	}
	return sets, nil
}

func declType(b *layout.Binding) string {
	if b.Image != nil {
		return "uniform " + b.Image.Type
	}
	return b.Kind.String()
}

// SetLayouts returns the set layouts of a table in ascending set index.
func (a *DescriptorAllocator) SetLayouts(table *layout.Layout) []*SetLayout {
	return a.tables[table]
}

// LayoutHandles returns the set layout handles of a table in SetLayouts order.
func (a *DescriptorAllocator) LayoutHandles(table *layout.Layout) []metadata.DescriptorSetLayoutHandle {
	sets := a.tables[table]
	out := make([]metadata.DescriptorSetLayoutHandle, len(sets))
	for i, s := range sets {
		out[i] = s.Handle
	}
	return out
}

// Pool returns the descriptor pool, zero when no table has descriptors.
func (a *DescriptorAllocator) Pool() metadata.DescriptorPoolHandle {
	return a.pool
}

// AllocateSets allocates one descriptor set per set layout of table for
// every replica: result[replica][i] belongs to SetLayouts(table)[i].
func (a *DescriptorAllocator) AllocateSets(table *layout.Layout) ([][]metadata.DescriptorSetHandle, error) {
	sets, ok := a.tables[table]
	if !ok {
		return nil, fmt.Errorf("%s: binding table was not registered with the allocator", table.Shader)
	}
	out := make([][]metadata.DescriptorSetHandle, a.replicas)
	if len(sets) == 0 {
		return out, nil
	}
	handles := a.LayoutHandles(table)
	for r := 0; r < a.replicas; r++ {
		allocated, err := a.backend.AllocateDescriptorSets(a.pool, handles)
		if err != nil {
			return nil, &AllocationError{Resource: "descriptor sets of " + table.Shader, Replica: r, Err: err}
		}
		out[r] = allocated
	}
	return out, nil
}

func (a *DescriptorAllocator) destroyLayouts(sets []*SetLayout) {
	for i := len(sets) - 1; i >= 0; i-- {
		a.backend.DestroyDescriptorSetLayout(sets[i].Handle)
	}
}

// Destroy frees the pool, which releases every set allocated from it, then
// the set layouts in reverse creation order.
func (a *DescriptorAllocator) Destroy() {
	if a.pool != 0 {
		a.backend.DestroyDescriptorPool(a.pool)
		a.pool = 0
	}
	for i := len(a.order) - 1; i >= 0; i-- {
		a.destroyLayouts(a.tables[a.order[i]])
	}
	a.tables = make(map[*layout.Layout][]*SetLayout)
	a.order = nil
}
