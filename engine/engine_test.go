package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/assets"
	"github.com/spaghettifunk/spectra/engine/audio"
	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/platform"
	"github.com/spaghettifunk/spectra/engine/renderer/gputest"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/systems"
	"github.com/spaghettifunk/spectra/engine/visualizer"
)

const canvasShader = `#version 450
layout(local_size_x = 8, local_size_y = 8) in;
layout(binding = 0, rgba8) uniform writeonly image2D canvas;
layout(push_constant) uniform PC { float now; } pc;
void main() {}
`

// newTestEngine builds an engine around the software device, loading a
// precompiled module so no shader compiler is needed.
func newTestEngine(t *testing.T) (*Engine, *gputest.Device) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "canvas.comp")
	spv := filepath.Join(dir, "canvas.spv")
	require.NoError(t, os.WriteFile(src, []byte(canvasShader), 0o644))
	require.NoError(t, os.WriteFile(spv, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))

	am, err := assets.NewAssetManager()
	require.NoError(t, err)
	jobs, err := systems.NewJobSystem(1, 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = jobs.Shutdown()
		_ = am.Shutdown()
	})

	dev := gputest.New(2, 2, metadata.Extent{Width: 32, Height: 32})
	clock := core.NewClock()
	viz := visualizer.New(dev, &visualizer.SourceBuilder{Assets: am, Shader: src, SPIRV: spv}, jobs, audio.NewMailbox(1), clock, visualizer.Config{Shader: "canvas.comp"})
	require.NoError(t, viz.Load(context.Background()))
	t.Cleanup(viz.Destroy)

	e := &Engine{
		events:       core.NewEventBus(),
		assetManager: am,
		jobs:         jobs,
		visualizer:   viz,
		clock:        clock,
		shaderPath:   src,
		spirvPath:    spv,
	}
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_SHADER_CHANGED, e, e.onShaderChanged)
	return e, dev
}

func TestResizeSuspendsAndResumes(t *testing.T) {
	e, dev := newTestEngine(t)

	dev.SetSurfaceExtent(metadata.Extent{})
	e.events.Fire(core.EVENT_CODE_RESIZED, nil, platform.ResizeContext(0, 0))
	assert.True(t, e.isSuspended)
	require.NoError(t, e.visualizer.Tick())
	assert.Empty(t, dev.Submissions())

	dev.SetSurfaceExtent(metadata.Extent{Width: 48, Height: 16})
	e.events.Fire(core.EVENT_CODE_RESIZED, nil, platform.ResizeContext(48, 16))
	assert.False(t, e.isSuspended)
	require.NoError(t, e.visualizer.Tick())

	subs := dev.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, [3]uint32{6, 2, 1}, subs[0].Dispatch)
	assert.Empty(t, dev.ValidationErrors())
}

func TestQuitEventStopsRun(t *testing.T) {
	e, _ := newTestEngine(t)
	e.isRunning.Store(true)
	assert.True(t, e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{}))
	assert.False(t, e.isRunning.Load())
}

func TestShaderChangedTriggersReload(t *testing.T) {
	e, _ := newTestEngine(t)
	before := e.visualizer.Scheduler().Program().ID

	var other core.EventContext
	other.Data.C[0] = filepath.Join(filepath.Dir(e.shaderPath), "unrelated.comp")
	assert.False(t, e.events.Fire(core.EVENT_CODE_SHADER_CHANGED, nil, other))
	assert.False(t, e.visualizer.Reloading())

	var changed core.EventContext
	changed.Data.C[0] = e.spirvPath
	assert.True(t, e.events.Fire(core.EVENT_CODE_SHADER_CHANGED, nil, changed))
	assert.True(t, e.visualizer.Reloading())

	require.Eventually(t, e.visualizer.ApplyReloads, 2*time.Second, 5*time.Millisecond)
	assert.NotEqual(t, before, e.visualizer.Scheduler().Program().ID)
}

func TestPumpShaderChangesFiresEvents(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.assetManager.Initialize(filepath.Dir(e.shaderPath)))

	var paths []string
	e.events.Register(core.EVENT_CODE_SHADER_CHANGED, t, func(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
		paths = append(paths, data.Data.C[0])
		return false
	})

	// the engine handles its own shader paths, so only other sources reach
	// this listener
	extra := filepath.Join(filepath.Dir(e.shaderPath), "extra.glsl")
	require.NoError(t, os.WriteFile(extra, []byte("// a"), 0o644))

	require.Eventually(t, func() bool {
		e.pumpShaderChanges()
		return len(paths) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, extra, paths[0])
	assert.False(t, e.visualizer.Reloading())
}
