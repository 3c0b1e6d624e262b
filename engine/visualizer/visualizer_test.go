package visualizer

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/assets/loaders"
	"github.com/spaghettifunk/spectra/engine/audio"
	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer"
	"github.com/spaghettifunk/spectra/engine/renderer/gputest"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
	"github.com/spaghettifunk/spectra/engine/systems"
)

const spectrumShader = `#version 450
layout(local_size_x = 16, local_size_y = 16) in;

layout(binding = 0, rgba32f) uniform writeonly image2D out_img;
layout(binding = 1) uniform sampler2D out_img_prev;
layout(std430, binding = 2) readonly buffer DFT { uint count; float mags[]; } dft;

layout(push_constant) uniform PC {
    bool is_beat;
    float now;
} pc;

void main() {}
`

const quietShader = `#version 450
layout(local_size_x = 8, local_size_y = 8) in;
layout(binding = 0, rgba8) uniform writeonly image2D canvas;
layout(push_constant) uniform PC { float now; } pc;
void main() {}
`

const gainShader = `#version 450
layout(binding = 0, rgba8) uniform writeonly image2D canvas;
layout(push_constant) uniform PC { float now; float gain; } pc;
void main() {}
`

type fakeBuilder struct {
	mu     sync.Mutex
	source string
	err    error
	calls  int
}

func (b *fakeBuilder) set(source string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.source, b.err = source, err
}

func (b *fakeBuilder) Build(ctx context.Context) (*shader.Reflection, []uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, nil, b.err
	}
	refl, err := shader.Reflect("viz.comp", b.source)
	if err != nil {
		return nil, nil, err
	}
	return refl, []uint32{shader.SPIRVMagic}, nil
}

type fixture struct {
	dev     *gputest.Device
	builder *fakeBuilder
	mailbox *audio.Mailbox
	now     time.Time
	viz     *Visualizer
}

func newFixture(t *testing.T, source string) *fixture {
	t.Helper()
	jobs, err := systems.NewJobSystem(1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Shutdown() })

	f := &fixture{
		dev:     gputest.New(2, 3, metadata.Extent{Width: 64, Height: 32}),
		builder: &fakeBuilder{source: source},
		mailbox: audio.NewMailbox(4),
	}
	start := time.Unix(1000, 0)
	f.now = start
	clock := core.NewClockWithSource(func() time.Time { return f.now })
	clock.Start()
	f.now = start.Add(1500 * time.Millisecond)
	clock.Update()

	f.viz = New(f.dev, f.builder, jobs, f.mailbox, clock, Config{
		Shader:    "viz.comp",
		DFTBuffer: "dft",
		DFTBins:   8,
	})
	return f
}

func floatAt(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestLoadRegistersDFTBuffer(t *testing.T) {
	f := newFixture(t, spectrumShader)
	require.NoError(t, f.viz.Load(context.Background()))

	mb, ok := f.viz.Scheduler().Buffer("dft")
	require.True(t, ok)
	assert.Equal(t, uint64(4+8*4), mb.Size())
	assert.Equal(t, 2, mb.Replicas())
	assert.Equal(t, uint64(4), f.viz.dftOffset)

	f.viz.Destroy()
	assert.Zero(t, f.dev.Live().Total())
	assert.Empty(t, f.dev.ValidationErrors())
}

func TestTickWritesAudioAndPushConstants(t *testing.T) {
	f := newFixture(t, spectrumShader)
	require.NoError(t, f.viz.Load(context.Background()))
	defer f.viz.Destroy()

	f.mailbox.Post(audio.Frame{Magnitudes: []float32{0.5, 0.25}, Beat: true})
	require.NoError(t, f.viz.Tick())
	require.NoError(t, f.viz.Tick())

	mb, _ := f.viz.Scheduler().Buffer("dft")
	for r := 0; r < 2; r++ {
		mem := mb.Mapped(r)
		assert.Equal(t, float32(0.5), floatAt(mem, 4), "replica %d", r)
		assert.Equal(t, float32(0.25), floatAt(mem, 8), "replica %d", r)
	}

	subs := f.dev.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(subs[0].PushConstants[0:]))
	assert.Equal(t, float32(1.5), floatAt(subs[0].PushConstants, 4))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(subs[1].PushConstants[0:]), "beat lasts one frame")
	assert.Empty(t, f.dev.ValidationErrors())
}

func TestTickClipsMagnitudes(t *testing.T) {
	f := newFixture(t, spectrumShader)
	require.NoError(t, f.viz.Load(context.Background()))
	defer f.viz.Destroy()

	mags := make([]float32, 20)
	for i := range mags {
		mags[i] = float32(i)
	}
	f.mailbox.Post(audio.Frame{Magnitudes: mags})
	require.NoError(t, f.viz.Tick())

	mb, _ := f.viz.Scheduler().Buffer("dft")
	assert.Equal(t, float32(7), floatAt(mb.Mapped(0), 4+7*4))
}

func TestLoadWithoutAudioBlock(t *testing.T) {
	f := newFixture(t, quietShader)
	require.NoError(t, f.viz.Load(context.Background()))
	defer f.viz.Destroy()

	_, ok := f.viz.Scheduler().Buffer("dft")
	assert.False(t, ok)

	f.mailbox.Post(audio.Frame{Magnitudes: []float32{1}, Beat: true})
	require.NoError(t, f.viz.Tick())
	subs := f.dev.Submissions()
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].PushConstants, 4)
}

func TestLoadRejectsUnknownPushInputs(t *testing.T) {
	f := newFixture(t, gainShader)
	err := f.viz.Load(context.Background())
	assert.ErrorIs(t, err, renderer.ErrFieldNotFound)
	assert.Zero(t, f.dev.Live().Total())
}

func TestLoadBuildError(t *testing.T) {
	f := newFixture(t, "")
	f.builder.set("", errors.New("glslc exploded"))
	assert.EqualError(t, f.viz.Load(context.Background()), "glslc exploded")
}

func TestReloadSwapsProgram(t *testing.T) {
	f := newFixture(t, spectrumShader)
	require.NoError(t, f.viz.Load(context.Background()))
	defer f.viz.Destroy()
	before := f.viz.Scheduler().Program().ID

	f.builder.set(quietShader, nil)
	f.viz.RequestReload()
	assert.True(t, f.viz.Reloading())
	require.Eventually(t, f.viz.ApplyReloads, 2*time.Second, 5*time.Millisecond)

	assert.False(t, f.viz.Reloading())
	p := f.viz.Scheduler().Program()
	assert.NotEqual(t, before, p.ID)
	assert.Equal(t, []string{"now"}, p.PushConstants.Fields())
	require.NoError(t, f.viz.Tick())
	assert.Empty(t, f.dev.ValidationErrors())
}

func TestFailedReloadKeepsProgram(t *testing.T) {
	for name, set := range map[string]func(b *fakeBuilder){
		"build error":    func(b *fakeBuilder) { b.set(spectrumShader, errors.New("syntax error")) },
		"unknown inputs": func(b *fakeBuilder) { b.set(gainShader, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, spectrumShader)
			require.NoError(t, f.viz.Load(context.Background()))
			defer f.viz.Destroy()
			before := f.viz.Scheduler().Program().ID
			live := f.dev.Live()

			set(f.builder)
			f.viz.RequestReload()
			require.Eventually(t, func() bool {
				f.viz.ApplyReloads()
				return !f.viz.Reloading()
			}, 2*time.Second, 5*time.Millisecond)

			assert.Equal(t, before, f.viz.Scheduler().Program().ID)
			assert.Equal(t, live, f.dev.Live())
			require.NoError(t, f.viz.Tick())
		})
	}
}

func TestReloadRequestsCoalesce(t *testing.T) {
	f := newFixture(t, spectrumShader)
	require.NoError(t, f.viz.Load(context.Background()))
	defer f.viz.Destroy()

	f.viz.RequestReload()
	f.viz.RequestReload()
	f.viz.RequestReload()
	require.Eventually(t, func() bool {
		f.viz.ApplyReloads()
		return !f.viz.Reloading()
	}, 2*time.Second, 5*time.Millisecond)

	f.builder.mu.Lock()
	defer f.builder.mu.Unlock()
	assert.Equal(t, 3, f.builder.calls, "one load, one reload and one follow up")
}

func TestSourceBuilder(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "viz.comp")
	require.NoError(t, os.WriteFile(src, []byte(quietShader), 0o644))

	compiler := &countingCompiler{}
	b := &SourceBuilder{Assets: assetLoader{}, Compiler: compiler, Shader: src}
	refl, code, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(8), refl.Workgroup.X)
	assert.Equal(t, []uint32{shader.SPIRVMagic, 1}, code)
	assert.Equal(t, 1, compiler.calls)

	spv := filepath.Join(dir, "viz.spv")
	require.NoError(t, os.WriteFile(spv, []byte{0x03, 0x02, 0x23, 0x07, 0x02, 0x00, 0x00, 0x00}, 0o644))
	b.SPIRV = spv
	_, code, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{shader.SPIRVMagic, 2}, code)
	assert.Equal(t, 1, compiler.calls, "precompiled SPIR-V skips the compiler")
}

type countingCompiler struct{ calls int }

func (c *countingCompiler) Compile(ctx context.Context, source string) ([]uint32, error) {
	c.calls++
	return []uint32{shader.SPIRVMagic, 1}, nil
}

// assetLoader picks the loader by extension like the asset manager does.
type assetLoader struct{}

func (assetLoader) LoadAsset(path string) (*loaders.Asset, error) {
	if filepath.Ext(path) == ".spv" {
		return (&loaders.BinaryLoader{}).Load(path)
	}
	return (&loaders.ShaderLoader{}).Load(path)
}
