package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[window]
width = 640
height = 480

[renderer]
shader = "viz.comp"
frames_in_flight = 3
present_image = "canvas"
compiler_args = ["-O", "-g"]

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, "spectra", cfg.Window.Name)
	assert.Equal(t, "viz.comp", cfg.Renderer.Shader)
	assert.Equal(t, uint32(3), cfg.Renderer.FramesInFlight)
	assert.Equal(t, "canvas", cfg.Renderer.PresentImage)
	assert.Equal(t, []string{"-O", "-g"}, cfg.Renderer.CompilerArgs)
	assert.Equal(t, "dft", cfg.Renderer.DFTBuffer)
	assert.Equal(t, core.LogLevelDebug, cfg.LogLevel)
}

func TestParseConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key": "[renderer]\nshaders = \"x.comp\"\n",
		"bad syntax":  "[window\nwidth = 1\n",
		"wrong type":  "[window]\nwidth = \"wide\"\n",
		"zero size":   "[window]\nwidth = 0\n",
		"no shader":   "[renderer]\nshader = \"\"\n",
		"zero frames": "[renderer]\nframes_in_flight = 0\n",
		"bad level":   "[log]\nlevel = \"loud\"\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spectra.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nshader = \"shaders/a.comp\"\nspirv = \"/abs/a.spv\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shaders", "a.comp"), cfg.Renderer.Shader)
	assert.Equal(t, "/abs/a.spv", cfg.Renderer.SPIRV)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "spectra.toml"))
	require.NoError(t, err)
	assert.Equal(t, "out_img", cfg.Renderer.PresentImage)
	assert.True(t, cfg.Renderer.HotReload)
}
