package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plasmaSource = `#version 450
layout(local_size_x = 16, local_size_y = 16) in;
layout(binding = 0, rgba32f) uniform writeonly image2D out_img;
void main() {}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]AssetType{
		"shaders/plasma.comp": AssetTypeShaderSource,
		"shaders/common.glsl": AssetTypeShaderSource,
		"shaders/plasma.spv":  AssetTypeSPIRV,
		"shaders/README.md":   AssetTypeNone,
		"shaders/plasma":      AssetTypeNone,
	}
	for path, want := range cases {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}

func TestInitializeIndexesShaders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plasma.comp"), plasmaSource)
	writeFile(t, filepath.Join(dir, "nested", "plasma.spv"), "\x03\x02\x23\x07")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	got := am.Assets()
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(dir, "nested", "plasma.spv"), got[0].Path)
	assert.Equal(t, AssetTypeSPIRV, got[0].Type)
	assert.Equal(t, filepath.Join(dir, "plasma.comp"), got[1].Path)
	assert.Equal(t, AssetTypeShaderSource, got[1].Type)
}

func TestLoadAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plasma.comp")
	writeFile(t, path, plasmaSource)

	am, err := NewAssetManager()
	require.NoError(t, err)
	defer am.Shutdown()

	asset, err := am.LoadAsset(path)
	require.NoError(t, err)
	require.NotNil(t, asset.Reflection)
	assert.Equal(t, uint32(16), asset.Reflection.Workgroup.X)

	_, err = am.LoadAsset(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestChangesReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plasma.comp")
	writeFile(t, path, plasmaSource)

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, path, plasmaSource+"// edited\n")

	select {
	case changed := <-am.Changes():
		assert.Equal(t, path, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the rewritten shader")
	}
}

func TestShutdownClosesChanges(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))
	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())

	_, ok := <-am.Changes()
	assert.False(t, ok)
	assert.ErrorIs(t, am.addRecursive(t.TempDir()), ErrClosed)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Shutdown())

	_, ok := <-am.Changes()
	assert.False(t, ok)
}
