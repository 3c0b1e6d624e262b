package renderer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/math"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

type SchedulerState uint8

const (
	StateRunning SchedulerState = iota
	StateReinitializing
	StateTerminated
)

func (s SchedulerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReinitializing:
		return "reinitializing"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("SchedulerState(%d)", s)
}

// previousSuffix marks an image declaration bound to the previous frame of
// the image named by the rest of the identifier.
const previousSuffix = "_prev"

type SchedulerConfig struct {
	// PresentImage names the image blitted to the swapchain. Empty selects
	// the first storage image the shader declares.
	PresentImage string
}

// resources are the image and buffer replicas bound to one program.
type resources struct {
	images   map[string]*MultiImage
	order    []string
	previous map[string]*PreviousView
	owned    map[string]*MultiBuffer
	present  string
}

// Scheduler drives the per frame replica selection, push constants,
// dispatch and resize lifecycle of one Program. It is not safe for
// concurrent use; the frame producer goroutine owns it.
type Scheduler struct {
	backend  RendererBackend
	config   SchedulerConfig
	replicas int
	frame    uint64
	state    SchedulerState
	extent   metadata.Extent

	resizePending bool
	pendingExtent metadata.Extent

	program    *Program
	res        *resources
	sampler    metadata.SamplerHandle
	registered map[string]*MultiBuffer
	push       PushValues
}

func NewScheduler(backend RendererBackend, config SchedulerConfig) (*Scheduler, error) {
	sampler, err := backend.CreateSampler()
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	return &Scheduler{
		backend:    backend,
		config:     config,
		replicas:   int(backend.FramesInFlight()),
		extent:     backend.SurfaceExtent(),
		sampler:    sampler,
		registered: make(map[string]*MultiBuffer),
		push:       make(PushValues),
	}, nil
}

func (s *Scheduler) State() SchedulerState {
	return s.state
}

// FrameCount is the number of frames submitted so far.
func (s *Scheduler) FrameCount() uint64 {
	return s.frame
}

// Replicas is the replica count R of every resource the scheduler binds.
func (s *Scheduler) Replicas() int {
	return s.replicas
}

func (s *Scheduler) Extent() metadata.Extent {
	return s.extent
}

func (s *Scheduler) Program() *Program {
	return s.program
}

// RegisterBuffer binds a host created buffer to every block whose instance
// is name. It must have one replica per frame in flight, must hold at least
// the block's fixed size and is never destroyed by the scheduler.
func (s *Scheduler) RegisterBuffer(name string, mb *MultiBuffer) error {
	if mb.Replicas() != s.replicas {
		return fmt.Errorf("buffer %s has %d replicas, scheduler runs %d", name, mb.Replicas(), s.replicas)
	}
	if s.program == nil {
		s.registered[name] = mb
		return nil
	}
	b, bound := s.program.Layout.Lookup(name)
	if bound && b.Kind.IsBuffer() && b.Size.Known && mb.Size() < uint64(b.Size.Bytes) {
		return fmt.Errorf("%s: registered buffer %s holds %d bytes, block needs %d", s.program.Name(), name, mb.Size(), b.Size.Bytes)
	}
	s.registered[name] = mb
	if !bound {
		return nil
	}
	if err := s.backend.WaitIdle(); err != nil {
		return s.fail("wait idle", err)
	}
	if owned, ok := s.res.owned[name]; ok {
		owned.Destroy()
		delete(s.res.owned, name)
	}
	s.bindAll()
	return nil
}

// Buffer returns the registered or automatically allocated buffer bound to
// name.
func (s *Scheduler) Buffer(name string) (*MultiBuffer, bool) {
	if mb, ok := s.registered[name]; ok {
		return mb, true
	}
	if s.res != nil {
		mb, ok := s.res.owned[name]
		return mb, ok
	}
	return nil, false
}

// Image returns the image resource created for a declaration.
func (s *Scheduler) Image(name string) (*MultiImage, bool) {
	if s.res == nil {
		return nil, false
	}
	mi, ok := s.res.images[name]
	return mi, ok
}

// PreviousView returns the previous frame view bound to a `<base>_prev`
// declaration.
func (s *Scheduler) PreviousView(name string) (*PreviousView, bool) {
	if s.res == nil {
		return nil, false
	}
	v, ok := s.res.previous[name]
	return v, ok
}

// SetPushValue stores a push constant value. Names the current program's
// push constant block does not declare are rejected.
func (s *Scheduler) SetPushValue(name string, v PushValue) error {
	if s.program != nil {
		pc := s.program.PushConstants
		if pc == nil {
			return fmt.Errorf("%s declares no push constants: %s: %w", s.program.Name(), name, ErrUnknownField)
		}
		if err := pc.Check(name, v); err != nil {
			return err
		}
	}
	s.push[name] = v
	return nil
}

// SetPushValues replaces every push constant value.
func (s *Scheduler) SetPushValues(values PushValues) error {
	next := make(PushValues, len(values))
	for name, v := range values {
		if s.program != nil {
			if s.program.PushConstants == nil {
				return fmt.Errorf("%s declares no push constants: %s: %w", s.program.Name(), name, ErrUnknownField)
			}
			if err := s.program.PushConstants.Check(name, v); err != nil {
				return err
			}
		}
		next[name] = v
	}
	s.push = next
	return nil
}

// SetProgram builds the resources of p and switches to it. When building
// fails the current program keeps running and p is left to the caller.
func (s *Scheduler) SetProgram(p *Program) error {
	if s.state == StateTerminated {
		return ErrTerminated
	}
	res, err := s.buildResources(p, s.extent)
	if err != nil {
		return err
	}

	if s.program != nil {
		if err := s.backend.WaitIdle(); err != nil {
			res.destroy()
			return s.fail("wait idle", err)
		}
	}
	oldProgram, oldRes := s.program, s.res
	s.program, s.res = p, res
	s.bindAll()

	if oldRes != nil {
		oldRes.destroy()
	}
	if oldProgram != nil {
		core.LogInfo("program %s replaced by %s", oldProgram.ID, p.ID)
		oldProgram.Destroy()
	}

	for name, v := range s.push {
		if p.PushConstants == nil || p.PushConstants.Check(name, v) != nil {
			core.LogWarn("dropping push constant %s=%s not declared by %s", name, v, p.Name())
			delete(s.push, name)
		}
	}
	return nil
}

// Resize requests a Reinitializing pass at the start of the next frame.
// A zero extent pauses rendering until a non zero one arrives.
func (s *Scheduler) Resize(width, height uint32) {
	if s.state == StateTerminated {
		return
	}
	s.resizePending = true
	s.pendingExtent = metadata.Extent{Width: width, Height: height}
}

// Frame runs one iteration: pending resize, fence wait, producer update of
// the frame's replica, push constants, dispatch and present.
func (s *Scheduler) Frame(update func(replica int) error) error {
	if s.state == StateTerminated {
		return ErrTerminated
	}
	if s.program == nil {
		return errors.New("scheduler has no program")
	}
	if s.resizePending {
		if s.pendingExtent.IsZero() {
			return nil
		}
		if err := s.reinitialize(s.pendingExtent); err != nil {
			return err
		}
		if s.resizePending {
			return nil
		}
	}

	// encode before waiting so a bad push map never consumes a frame
	var push []byte
	if pc := s.program.PushConstants; pc != nil {
		var err error
		if push, err = pc.Encode(s.push); err != nil {
			return err
		}
	}

	if err := s.backend.BeginFrame(s.frame); err != nil {
		return s.deviceFailure("begin frame", err)
	}

	replica := int(s.frame % uint64(s.replicas))
	if update != nil {
		if err := update(replica); err != nil {
			return fmt.Errorf("frame %d: update of replica %d failed: %w", s.frame, replica, err)
		}
	}

	sub := &metadata.FrameSubmission{
		Pipeline:       s.program.Pipeline(),
		DescriptorSets: s.program.BoundSets(replica),
		PushConstants:  push,
		Dispatch:       s.dispatch(),
		PresentExtent:  s.extent,
	}
	for _, name := range s.res.order {
		sub.Images = append(sub.Images, s.res.images[name].Replica(replica).Image)
	}
	if s.res.present != "" {
		sub.Present = s.res.images[s.res.present].Replica(replica).Image
	}

	err := s.backend.EndFrame(s.frame, sub)
	s.frame++
	if err != nil {
		return s.deviceFailure("end frame", err)
	}
	return nil
}

// dispatch is the workgroup count covering the surface extent.
func (s *Scheduler) dispatch() [3]uint32 {
	wg := s.program.Workgroup()
	return [3]uint32{
		math.DivCeil(s.extent.Width, wg.X),
		math.DivCeil(s.extent.Height, wg.Y),
		math.DivCeil(uint32(1), wg.Z),
	}
}

func (s *Scheduler) deviceFailure(op string, err error) error {
	de := &DeviceError{Op: op, Err: err}
	if de.Recoverable() {
		core.LogWarn("%v, recreating swapchain", de)
		if !s.resizePending {
			ext := s.backend.SurfaceExtent()
			s.Resize(ext.Width, ext.Height)
		}
		return nil
	}
	return s.fail(op, err)
}

// fail moves the scheduler to Terminated.
func (s *Scheduler) fail(op string, err error) error {
	de := &DeviceError{Op: op, Err: err}
	s.state = StateTerminated
	core.LogError("scheduler terminated: %v", de)
	return de
}

// reinitialize waits for the device to go idle, then replaces every image
// resource with one at the new extent and rewrites the descriptor sets.
// Buffers are kept.
func (s *Scheduler) reinitialize(extent metadata.Extent) error {
	s.state = StateReinitializing
	core.LogInfo("reinitializing for surface %s", extent)

	if err := s.backend.WaitIdle(); err != nil {
		return s.fail("wait idle", err)
	}
	s.res.destroyImages()

	got, err := s.backend.RecreateSwapchain(extent)
	if err != nil && !(&DeviceError{Err: err}).Recoverable() {
		return s.fail("recreate swapchain", err)
	}
	if err != nil || got.IsZero() {
		core.LogWarn("swapchain not ready for %s, retrying next frame", extent)
		s.state = StateRunning
		return s.rebuildImages(s.extent)
	}
	s.resizePending = false
	if err := s.rebuildImages(got); err != nil {
		return err
	}
	s.extent = got
	s.state = StateRunning
	return nil
}

func (s *Scheduler) rebuildImages(extent metadata.Extent) error {
	images, order, previous, err := s.buildImages(s.program, extent)
	if err != nil {
		s.state = StateTerminated
		core.LogError("scheduler terminated: %v", err)
		return err
	}
	s.res.images, s.res.order, s.res.previous = images, order, previous
	s.bindAll()
	return nil
}

func (s *Scheduler) buildResources(p *Program, extent metadata.Extent) (*resources, error) {
	images, order, previous, err := s.buildImages(p, extent)
	if err != nil {
		return nil, err
	}
	res := &resources{images: images, order: order, previous: previous, owned: make(map[string]*MultiBuffer)}

	for _, b := range p.Layout.Bindings() {
		if !b.Kind.IsBuffer() {
			continue
		}
		if mb, ok := s.registered[b.Name]; ok {
			if b.Size.Known && mb.Size() < uint64(b.Size.Bytes) {
				res.destroy()
				return nil, fmt.Errorf("%s: registered buffer %s holds %d bytes, block needs %d", p.Name(), b.Name, mb.Size(), b.Size.Bytes)
			}
			continue
		}
		if _, ok := res.owned[b.Name]; ok {
			continue
		}
		size, err := p.Layout.RequireSize(b.Name)
		if err != nil {
			res.destroy()
			return nil, err
		}
		usage := metadata.BufferUsageStorage
		if b.Kind == layout.KindUniformBuffer {
			usage = metadata.BufferUsageUniform
		}
		mb, err := NewMultiBuffer(s.backend, b.Name, s.replicas, uint64(size), usage)
		if err != nil {
			res.destroy()
			return nil, err
		}
		res.owned[b.Name] = mb
	}

	res.present = s.config.PresentImage
	if res.present != "" {
		if _, ok := images[res.present]; !ok {
			res.destroy()
			return nil, fmt.Errorf("%s: present image %q is not declared", p.Name(), res.present)
		}
	} else {
		for _, name := range order {
			if b, _ := p.Layout.Lookup(name); b.Kind == layout.KindStorageImage {
				res.present = name
				break
			}
		}
	}
	return res, nil
}

// buildImages creates one MultiImage per image declaration and a previous
// frame view for every `<base>_prev` declaration whose base is an image.
func (s *Scheduler) buildImages(p *Program, extent metadata.Extent) (map[string]*MultiImage, []string, map[string]*PreviousView, error) {
	images := make(map[string]*MultiImage)
	var order []string
	var prev []*layout.Binding

	destroy := func() {
		for i := len(order) - 1; i >= 0; i-- {
			images[order[i]].Destroy()
		}
	}

	for _, b := range p.Layout.Bindings() {
		if !b.Kind.IsImage() {
			continue
		}
		if base, ok := strings.CutSuffix(b.Name, previousSuffix); ok {
			if bb, found := p.Layout.Lookup(base); found && bb.Kind.IsImage() {
				prev = append(prev, b)
				continue
			}
		}
		if _, ok := images[b.Name]; ok {
			continue
		}
		format, ok := metadata.ParseImageFormat(b.Image.Format)
		if !ok {
			destroy()
			return nil, nil, nil, &layout.Error{
				Kind:    layout.Unsupported,
				Shader:  p.Name(),
				Name:    b.Name,
				Set:     b.Set,
				Binding: b.Binding,
				Detail:  fmt.Sprintf("image format %s is not supported", b.Image.Format),
			}
		}
		mi, err := NewMultiImage(s.backend, b.Name, s.replicas, extent, format)
		if err != nil {
			destroy()
			return nil, nil, nil, err
		}
		images[b.Name] = mi
		order = append(order, b.Name)
	}

	previous := make(map[string]*PreviousView, len(prev))
	for _, b := range prev {
		base := strings.TrimSuffix(b.Name, previousSuffix)
		previous[b.Name] = PreviousOf(images[base])
	}
	return images, order, previous, nil
}

// bindAll writes every descriptor of every replica. The device must not be
// executing any frame that uses the sets.
func (s *Scheduler) bindAll() {
	var writes []metadata.DescriptorWrite
	for r := 0; r < s.replicas; r++ {
		sets := s.program.DescriptorSets(r)
		for i, sl := range s.program.SetLayouts() {
			for j, lb := range sl.Bindings {
				src := sl.Sources[j]
				w := metadata.DescriptorWrite{Set: sets[i], Binding: lb.Binding, Type: lb.Type}
				switch {
				case src.Kind.IsBuffer():
					mb, _ := s.Buffer(src.Name)
					w.Buffer = mb.Buffer(r)
					w.Range = mb.Size()
				case src.Kind == layout.KindSampler:
					w.Sampler = s.sampler
				default:
					w.ImageView = s.imageReplica(src.Name, r).View
					if src.Kind == layout.KindCombinedImageSampler {
						w.Sampler = s.sampler
					}
				}
				writes = append(writes, w)
			}
		}
	}
	if len(writes) > 0 {
		s.backend.UpdateDescriptorSets(writes)
	}
}

func (s *Scheduler) imageReplica(name string, r int) ImageReplica {
	if v, ok := s.res.previous[name]; ok {
		return v.Replica(r)
	}
	return s.res.images[name].Replica(r)
}

// Destroy waits for the device and releases everything the scheduler
// created. Registered buffers belong to the caller.
func (s *Scheduler) Destroy() {
	if err := s.backend.WaitIdle(); err != nil {
		core.LogError("wait idle before shutdown: %v", err)
	}
	if s.res != nil {
		s.res.destroy()
		s.res = nil
	}
	if s.program != nil {
		s.program.Destroy()
		s.program = nil
	}
	if s.sampler != 0 {
		s.backend.DestroySampler(s.sampler)
		s.sampler = 0
	}
	s.state = StateTerminated
}

func (r *resources) destroyImages() {
	r.previous = nil
	for i := len(r.order) - 1; i >= 0; i-- {
		r.images[r.order[i]].Destroy()
	}
	r.images = nil
	r.order = nil
}

func (r *resources) destroy() {
	r.destroyImages()
	for _, mb := range r.owned {
		mb.Destroy()
	}
	r.owned = nil
}
