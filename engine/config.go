package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/spectra/engine/core"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// GLSL compute shader driving the visualization.
	Shader string `toml:"shader"`
	// Precompiled SPIR-V of Shader. Empty compiles Shader with glslc.
	SPIRV string `toml:"spirv"`
	// Compiler binary and extra flags.
	Compiler     string   `toml:"compiler"`
	CompilerArgs []string `toml:"compiler_args"`
	// Requested frames in flight, clamped to the swapchain image count.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Image blitted to the window. Empty picks the first storage image.
	PresentImage string `toml:"present_image"`
	Validation   bool   `toml:"validation"`
	// Watch the shader directory and rebuild the program on change.
	HotReload bool `toml:"hot_reload"`
	// Buffer block instance receiving the audio magnitudes.
	DFTBuffer string `toml:"dft_buffer"`
	// Number of float magnitudes in the DFT buffer.
	DFTBins uint32 `toml:"dft_bins"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`

	LogLevel core.LogLevel `toml:"-"`
}

// DefaultConfig is what LoadConfig starts from before decoding.
func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "spectra",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Shader:         "shaders/spectrum.comp",
			Compiler:       "glslc",
			FramesInFlight: 2,
			HotReload:      true,
			DFTBuffer:      "dft",
			DFTBins:        512,
		},
		Log:      LogConfig{Level: "info"},
		LogLevel: core.LogLevelInfo,
	}
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func ParseConfig(data []byte) (*ApplicationConfig, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("invalid config at %d:%d: %w", row, col, err)
		}
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) validate() error {
	var errs []error
	if c.Window.Width == 0 || c.Window.Height == 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be non zero", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.Shader == "" {
		errs = append(errs, errors.New("renderer.shader is required"))
	}
	if c.Renderer.FramesInFlight == 0 {
		errs = append(errs, errors.New("renderer.frames_in_flight must be at least 1"))
	}
	level, ok := core.ParseLogLevel(c.Log.Level)
	if !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	c.LogLevel = level
	return errors.Join(errs...)
}

// resolvePaths makes relative shader paths relative to the config file.
func (c *ApplicationConfig) resolvePaths(dir string) {
	for _, p := range []*string{&c.Renderer.Shader, &c.Renderer.SPIRV} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
