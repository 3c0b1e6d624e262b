package visualizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/spectra/engine/audio"
	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
	"github.com/spaghettifunk/spectra/engine/systems"
)

// Push constant members the visualizer knows how to fill.
const (
	PushNow    = "now"
	PushIsBeat = "is_beat"
)

type Config struct {
	// Name the program is reported under.
	Shader       string
	PresentImage string
	// DFTBuffer is the block instance the audio magnitudes are written to.
	// Empty disables the audio input.
	DFTBuffer string
	DFTBins   uint32
}

type built struct {
	refl *shader.Reflection
	code []uint32
	err  error
}

// Visualizer feeds audio frames and time into a Scheduler and swaps in
// rebuilt programs. Everything but the reload build runs on the frame
// goroutine.
type Visualizer struct {
	backend   renderer.RendererBackend
	builder   Builder
	jobs      *systems.JobSystem
	mailbox   *audio.Mailbox
	clock     *core.Clock
	config    Config
	scheduler *renderer.Scheduler

	dft        *renderer.MultiBuffer
	dftOffset  uint64
	magnitudes []float32
	beat       bool

	reloads      chan built
	reloading    bool
	reloadQueued bool
}

func New(backend renderer.RendererBackend, builder Builder, jobs *systems.JobSystem, mailbox *audio.Mailbox, clock *core.Clock, config Config) *Visualizer {
	return &Visualizer{
		backend: backend,
		builder: builder,
		jobs:    jobs,
		mailbox: mailbox,
		clock:   clock,
		config:  config,
		reloads: make(chan built, 1),
	}
}

// Load builds the first program and its scheduler. Any error aborts
// startup.
func (v *Visualizer) Load(ctx context.Context) error {
	refl, code, err := v.builder.Build(ctx)
	if err != nil {
		return err
	}
	p, err := v.newProgram(refl, code)
	if err != nil {
		return err
	}

	s, err := renderer.NewScheduler(v.backend, renderer.SchedulerConfig{PresentImage: v.config.PresentImage})
	if err != nil {
		p.Destroy()
		return err
	}
	v.scheduler = s
	if err := v.install(p); err != nil {
		p.Destroy()
		return err
	}
	return nil
}

func (v *Visualizer) Scheduler() *renderer.Scheduler {
	return v.scheduler
}

func (v *Visualizer) newProgram(refl *shader.Reflection, code []uint32) (*renderer.Program, error) {
	p, err := renderer.NewProgram(v.backend, refl, code)
	if err != nil {
		return nil, err
	}
	p.Source = v.config.Shader
	if err := checkInputs(p); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// checkInputs rejects a program whose push constant block has members the
// visualizer cannot provide, before it ever reaches a frame.
func checkInputs(p *renderer.Program) error {
	if p.PushConstants == nil {
		return nil
	}
	_, err := p.PushConstants.Encode(inputs(p, 0, false))
	return err
}

// inputs returns the push values p declares, with matching types.
func inputs(p *renderer.Program, now float32, beat bool) renderer.PushValues {
	out := make(renderer.PushValues, 2)
	if p.PushConstants == nil {
		return out
	}
	for name, value := range map[string]renderer.PushValue{
		PushNow:    renderer.Float(now),
		PushIsBeat: renderer.Bool(beat),
	} {
		if p.PushConstants.Check(name, value) == nil {
			out[name] = value
		}
	}
	return out
}

// install registers the audio buffer the program needs and switches the
// scheduler to it.
func (v *Visualizer) install(p *renderer.Program) error {
	if err := v.prepareDFT(p); err != nil {
		return err
	}
	return v.scheduler.SetProgram(p)
}

// prepareDFT makes sure the registered DFT buffer covers the magnitudes at
// the offset p expects them.
func (v *Visualizer) prepareDFT(p *renderer.Program) error {
	if v.config.DFTBuffer == "" || v.config.DFTBins == 0 {
		return nil
	}
	block, err := p.Reflection.Block(v.config.DFTBuffer)
	if err != nil {
		core.LogWarn("%s has no %s block, audio input is not bound", p.Name(), v.config.DFTBuffer)
		return nil
	}

	offset := magnitudesOffset(block)
	size := offset + uint64(v.config.DFTBins)*4
	if extent, ok := block.Extent(); ok && uint64(extent) > size {
		size = uint64(extent)
	}
	v.dftOffset = offset
	if v.dft != nil && v.dft.Size() >= size {
		return nil
	}

	usage := metadata.BufferUsageStorage
	if block.Storage == shader.StorageUniform {
		usage = metadata.BufferUsageUniform
	}
	mb, err := renderer.NewMultiBuffer(v.backend, v.config.DFTBuffer, v.scheduler.Replicas(), size, usage)
	if err != nil {
		return err
	}
	if err := v.scheduler.RegisterBuffer(v.config.DFTBuffer, mb); err != nil {
		mb.Destroy()
		return err
	}
	if v.dft != nil {
		v.dft.Destroy()
	}
	v.dft = mb
	core.LogDebug("DFT buffer %s: %d bytes, magnitudes at %d", v.config.DFTBuffer, size, offset)
	return nil
}

// magnitudesOffset is where the last member of the block starts, which is
// where the magnitude array lives.
func magnitudesOffset(block *shader.BlockDeclaration) uint64 {
	fields := block.Layout()
	if len(fields) == 0 {
		return 0
	}
	return uint64(fields[len(fields)-1].Offset)
}

// RequestReload rebuilds the program on a worker. A request made while one
// is running is folded into a single follow up.
func (v *Visualizer) RequestReload() {
	if v.reloading {
		v.reloadQueued = true
		return
	}
	err := v.jobs.TrySubmit(systems.JobTask{
		Name: "reload " + v.config.Shader,
		Run: func(ctx context.Context) (interface{}, error) {
			refl, code, err := v.builder.Build(ctx)
			if err != nil {
				return nil, err
			}
			return built{refl: refl, code: code}, nil
		},
		OnComplete: func(result interface{}) {
			v.reloads <- result.(built)
		},
		OnFailure: func(err error) {
			v.reloads <- built{err: err}
		},
	})
	if err != nil {
		core.LogWarn("cannot schedule reload of %s: %s", v.config.Shader, err)
		return
	}
	v.reloading = true
	core.LogInfo("reloading %s", v.config.Shader)
}

// ApplyReloads swaps in a finished rebuild without blocking. It returns
// true when a new program took over. A failed rebuild leaves the running
// program in place.
func (v *Visualizer) ApplyReloads() bool {
	var b built
	select {
	case b = <-v.reloads:
	default:
		return false
	}
	v.reloading = false
	defer func() {
		if v.reloadQueued {
			v.reloadQueued = false
			v.RequestReload()
		}
	}()

	if b.err != nil {
		core.LogError("reload of %s failed, keeping the running program: %s", v.config.Shader, b.err)
		return false
	}
	p, err := v.newProgram(b.refl, b.code)
	if err != nil {
		core.LogError("reload of %s failed, keeping the running program: %s", v.config.Shader, err)
		return false
	}
	if err := v.install(p); err != nil {
		p.Destroy()
		if errors.Is(err, renderer.ErrTerminated) {
			return false
		}
		core.LogError("reload of %s failed, keeping the running program: %s", v.config.Shader, err)
		return false
	}
	return true
}

// Reloading reports whether a rebuild is running or queued.
func (v *Visualizer) Reloading() bool {
	return v.reloading || v.reloadQueued
}

func (v *Visualizer) Resize(width, height uint32) {
	v.scheduler.Resize(width, height)
}

// Tick takes the newest audio frame, updates the push constants and runs
// one scheduler frame.
func (v *Visualizer) Tick() error {
	v.beat = false
	if v.mailbox != nil {
		if f, ok := v.mailbox.Latest(); ok {
			v.magnitudes = f.Magnitudes
			v.beat = f.Beat
		}
	}

	p := v.scheduler.Program()
	if err := v.scheduler.SetPushValues(inputs(p, v.clock.Seconds(), v.beat)); err != nil {
		return err
	}
	return v.scheduler.Frame(v.update)
}

// update writes the magnitudes into the replica of this frame. Every
// replica gets the newest data even when no new frame arrived.
func (v *Visualizer) update(replica int) error {
	if v.dft == nil || len(v.magnitudes) == 0 {
		return nil
	}
	room := (v.dft.Size() - v.dftOffset) / 4
	mags := v.magnitudes
	if uint64(len(mags)) > room {
		mags = mags[:room]
	}
	if err := v.dft.WriteFloats(replica, v.dftOffset, mags); err != nil {
		return fmt.Errorf("write %s: %w", v.config.DFTBuffer, err)
	}
	return nil
}

// Destroy releases the scheduler, its program and the DFT buffer.
func (v *Visualizer) Destroy() {
	if v.scheduler != nil {
		v.scheduler.Destroy()
		v.scheduler = nil
	}
	if v.dft != nil {
		v.dft.Destroy()
		v.dft = nil
	}
}
