package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
)

// ShaderCompiler turns a GLSL source file into SPIR-V words.
type ShaderCompiler interface {
	Compile(ctx context.Context, source string) ([]uint32, error)
}

// Program is a compute pipeline together with everything derived from its
// shader: reflection, binding table, descriptor objects and push constant
// encoder. A new Program is built on every (re)load.
type Program struct {
	ID            uuid.UUID
	Source        string
	Reflection    *shader.Reflection
	Layout        *layout.Layout
	PushConstants *PushConstants

	backend   RendererBackend
	compiler  ShaderCompiler
	allocator *DescriptorAllocator
	pipeline  metadata.PipelineHandle
	sets      [][]metadata.DescriptorSetHandle
	bound     [][]metadata.BoundDescriptorSet

	// fills pipeline layout indices that declare no descriptors
	emptyLayout metadata.DescriptorSetLayoutHandle
}

// LoadProgram reflects and compiles source, then builds its program.
func LoadProgram(ctx context.Context, backend RendererBackend, compiler ShaderCompiler, source string) (*Program, error) {
	refl, err := shader.ReflectFile(source)
	if err != nil {
		return nil, err
	}
	code, err := compiler.Compile(ctx, source)
	if err != nil {
		return nil, err
	}
	p, err := NewProgram(backend, refl, code)
	if err != nil {
		return nil, err
	}
	p.Source = source
	p.compiler = compiler
	return p, nil
}

// NewProgram builds the device objects for an already reflected shader.
// On failure everything created so far is destroyed.
func NewProgram(backend RendererBackend, refl *shader.Reflection, code []uint32) (*Program, error) {
	l, err := layout.Synthesize(refl)
	if err != nil {
		return nil, err
	}

	replicas := int(backend.FramesInFlight())
	alloc, err := NewDescriptorAllocator(backend, []*layout.Layout{l}, replicas)
	if err != nil {
		return nil, err
	}

	setLayouts := alloc.SetLayouts(l)
	handles, empty, err := pipelineSetLayouts(backend, setLayouts)
	if err != nil {
		alloc.Destroy()
		return nil, fmt.Errorf("%s: %w", refl.Shader, err)
	}
	release := func() {
		if empty != 0 {
			backend.DestroyDescriptorSetLayout(empty)
		}
		alloc.Destroy()
	}

	var pc *PushConstants
	cfg := &metadata.ComputePipelineConfig{
		Name:       refl.Shader,
		EntryPoint: "main",
		Code:       code,
		SetLayouts: handles,
	}
	if l.PushConstants != nil {
		if pc, err = NewPushConstants(l.PushConstants.Block); err != nil {
			release()
			return nil, err
		}
		cfg.PushConstants = pc.Range()
	}

	pipeline, err := backend.CreateComputePipeline(cfg)
	if err != nil {
		release()
		return nil, fmt.Errorf("%s: failed to create compute pipeline: %w", refl.Shader, err)
	}

	sets, err := alloc.AllocateSets(l)
	if err != nil {
		backend.DestroyComputePipeline(pipeline)
		release()
		return nil, err
	}

	bound := make([][]metadata.BoundDescriptorSet, len(sets))
	for r, replica := range sets {
		bound[r] = make([]metadata.BoundDescriptorSet, len(replica))
		for i, h := range replica {
			bound[r][i] = metadata.BoundDescriptorSet{Index: setLayouts[i].Index, Set: h}
		}
	}

	p := &Program{
		ID:            uuid.New(),
		Reflection:    refl,
		Layout:        l,
		PushConstants: pc,
		backend:       backend,
		allocator:     alloc,
		pipeline:      pipeline,
		sets:          sets,
		bound:         bound,
		emptyLayout:   empty,
	}
	wg := refl.Workgroup
	core.LogInfo("program %s built from %s: workgroup %dx%dx%d, %d descriptor sets per frame",
		p.ID, refl.Shader, wg.X, wg.Y, wg.Z, len(setLayouts))
	return p, nil
}

// pipelineSetLayouts spreads set layouts over their indices. Indices below
// the highest one that have no layout share one empty layout, which is
// returned so the caller can destroy it.
func pipelineSetLayouts(backend RendererBackend, sets []*SetLayout) ([]metadata.DescriptorSetLayoutHandle, metadata.DescriptorSetLayoutHandle, error) {
	if len(sets) == 0 {
		return nil, 0, nil
	}
	handles := make([]metadata.DescriptorSetLayoutHandle, sets[len(sets)-1].Index+1)
	for _, sl := range sets {
		handles[sl.Index] = sl.Handle
	}
	var empty metadata.DescriptorSetLayoutHandle
	for i, h := range handles {
		if h != 0 {
			continue
		}
		if empty == 0 {
			var err error
			if empty, err = backend.CreateDescriptorSetLayout(nil); err != nil {
				return nil, 0, fmt.Errorf("failed to create empty layout for set %d: %w", i, err)
			}
		}
		handles[i] = empty
	}
	return handles, empty, nil
}

// Rebuild recompiles and reflects the program's source into a new Program.
// The receiver is left untouched so it can keep running if this fails.
func (p *Program) Rebuild(ctx context.Context) (*Program, error) {
	if p.compiler == nil || p.Source == "" {
		return nil, errors.New("program was not loaded from a source file")
	}
	return LoadProgram(ctx, p.backend, p.compiler, p.Source)
}

func (p *Program) Name() string {
	return p.Reflection.Shader
}

func (p *Program) Pipeline() metadata.PipelineHandle {
	return p.pipeline
}

func (p *Program) Workgroup() shader.WorkgroupShape {
	return p.Reflection.Workgroup
}

// SetLayouts returns the layouts of the set indices that hold descriptors,
// in ascending index.
func (p *Program) SetLayouts() []*SetLayout {
	return p.allocator.SetLayouts(p.Layout)
}

// DescriptorSets returns the sets of replica r, one per SetLayouts entry.
func (p *Program) DescriptorSets(r int) []metadata.DescriptorSetHandle {
	p.checkReplica(r)
	return p.sets[r]
}

// BoundSets returns the sets of replica r paired with their set index.
func (p *Program) BoundSets(r int) []metadata.BoundDescriptorSet {
	p.checkReplica(r)
	return p.bound[r]
}

func (p *Program) checkReplica(r int) {
	if r < 0 || r >= len(p.sets) {
		panic(fmt.Sprintf("program %s: replica %d out of range [0,%d)", p.Name(), r, len(p.sets)))
	}
}

// Destroy releases the pipeline, the descriptor sets and their layouts.
func (p *Program) Destroy() {
	if p.pipeline != 0 {
		p.backend.DestroyComputePipeline(p.pipeline)
		p.pipeline = 0
	}
	if p.emptyLayout != 0 {
		p.backend.DestroyDescriptorSetLayout(p.emptyLayout)
		p.emptyLayout = 0
	}
	p.allocator.Destroy()
	p.sets = nil
	p.bound = nil
}
