package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/spectra/engine/assets"
	"github.com/spaghettifunk/spectra/engine/audio"
	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/platform"
	"github.com/spaghettifunk/spectra/engine/renderer"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/renderer/vulkan"
	"github.com/spaghettifunk/spectra/engine/shader"
	"github.com/spaghettifunk/spectra/engine/systems"
	"github.com/spaghettifunk/spectra/engine/visualizer"
)

var _ renderer.RendererBackend = (*vulkan.VulkanRenderer)(nil)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// metricsInterval is how many frames pass between two metrics log lines.
const metricsInterval = 600

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	isRunning    atomic.Bool
	isSuspended  bool

	events       *core.EventBus
	platform     *platform.Platform
	backend      *vulkan.VulkanRenderer
	assetManager *assets.AssetManager
	jobs         *systems.JobSystem
	visualizer   *visualizer.Visualizer

	source  audio.Source
	mailbox *audio.Mailbox
	cancel  context.CancelFunc

	clock   *core.Clock
	metrics *core.Metrics

	shaderPath string
	spirvPath  string
}

// New prepares an engine for config. source feeds the DFT buffer; nil runs
// the shader without audio input.
func New(config *ApplicationConfig, source audio.Source) (*Engine, error) {
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	jobs, err := systems.NewJobSystem(1, 1)
	if err != nil {
		_ = am.Shutdown()
		return nil, err
	}

	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		events:       events,
		platform:     platform.New(events),
		assetManager: am,
		jobs:         jobs,
		source:       source,
		mailbox:      audio.NewMailbox(8),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(e.config.LogLevel)

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_SHADER_CHANGED, e, e.onShaderChanged)

	w := e.config.Window
	if err := e.platform.Startup(w.Name, w.X, w.Y, w.Width, w.Height); err != nil {
		return err
	}

	e.backend = vulkan.New(e.platform, metadata.RendererBackendConfig{
		ApplicationName: w.Name,
		FramesInFlight:  e.config.Renderer.FramesInFlight,
		Validation:      e.config.Renderer.Validation,
	})
	if err := e.backend.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize the vulkan renderer: %w", err)
	}

	var err error
	if e.shaderPath, err = filepath.Abs(e.config.Renderer.Shader); err != nil {
		return err
	}
	if e.config.Renderer.SPIRV != "" {
		if e.spirvPath, err = filepath.Abs(e.config.Renderer.SPIRV); err != nil {
			return err
		}
	}

	if e.config.Renderer.HotReload {
		if err := e.assetManager.Initialize(filepath.Dir(e.shaderPath)); err != nil {
			return fmt.Errorf("failed to watch shaders: %w", err)
		}
	}

	builder := &visualizer.SourceBuilder{
		Assets: e.assetManager,
		Compiler: &shader.Compiler{
			Binary: e.config.Renderer.Compiler,
			Args:   e.config.Renderer.CompilerArgs,
		},
		Shader: e.shaderPath,
		SPIRV:  e.spirvPath,
	}
	e.visualizer = visualizer.New(e.backend, builder, e.jobs, e.mailbox, e.clock, visualizer.Config{
		Shader:       filepath.Base(e.shaderPath),
		PresentImage: e.config.Renderer.PresentImage,
		DFTBuffer:    e.config.Renderer.DFTBuffer,
		DFTBins:      e.config.Renderer.DFTBins,
	})
	if err := e.visualizer.Load(context.Background()); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	var audioErrs <-chan error
	if e.source != nil {
		audioErrs = audio.Start(ctx, e.source, e.mailbox)
	}

	e.clock.Start()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}
		e.pumpShaderChanges()
		e.visualizer.ApplyReloads()

		select {
		case err, ok := <-audioErrs:
			if ok {
				core.LogWarn("audio input lost, continuing without it: %s", err)
			}
			audioErrs = nil
		default:
		}

		if e.isSuspended {
			e.platform.Sleep(10)
			continue
		}

		e.clock.Update()
		frameStartTime := e.platform.GetAbsoluteTime()

		if err := e.visualizer.Tick(); err != nil {
			core.LogError("frame %d failed, shutting down: %s", e.visualizer.Scheduler().FrameCount(), err)
			e.isRunning.Store(false)
			return err
		}

		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if frames := e.visualizer.Scheduler().FrameCount(); frames%metricsInterval == 0 {
			fps, ms := e.metrics.Frame()
			core.LogInfo("frame %d: %.0f fps, %.2f ms avg, %s since start", frames, fps, ms, e.clock.Elapsed().Round(time.Second))
		}
	}
	return nil
}

// Stop asks Run to return after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.jobs.Shutdown(); err != nil {
		return err
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if e.visualizer != nil {
		e.visualizer.Destroy()
	}
	if e.backend != nil {
		if err := e.backend.Shutdown(); err != nil {
			return err
		}
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	ext := e.platform.FramebufferSize()
	return ext.Width, ext.Height
}

// pumpShaderChanges turns the watcher's pending paths into shader changed
// events on the frame goroutine, once per path.
func (e *Engine) pumpShaderChanges() {
	seen := make(map[string]bool)
	for {
		select {
		case path, ok := <-e.assetManager.Changes():
			if !ok || seen[path] {
				if !ok {
					return
				}
				continue
			}
			seen[path] = true
			var ctx core.EventContext
			ctx.Data.C[0] = path
			e.events.Fire(core.EVENT_CODE_SHADER_CHANGED, e.assetManager, ctx)
		default:
			return
		}
	}
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onShaderChanged(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
	path := data.Data.C[0]
	if path != e.shaderPath && path != e.spirvPath {
		return false
	}
	e.visualizer.RequestReload()
	return true
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)
	if e.visualizer == nil {
		return false
	}

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
		}
	} else if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.visualizer.Resize(width, height)
	return true
}
