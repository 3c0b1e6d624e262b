package shader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGlslc writes a one word SPIR-V module to the -o argument.
const fakeGlslc = `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    shift
    printf '\003\002\043\007' > "$1"
  fi
  shift
done
`

func TestCompilerRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler stub")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "glslc")
	require.NoError(t, os.WriteFile(bin, []byte(fakeGlslc), 0o755))

	src := filepath.Join(dir, "vis.comp")
	require.NoError(t, os.WriteFile(src, []byte(visualizerSource), 0o644))

	c := &Compiler{Binary: bin, OutputDir: filepath.Join(dir, "out")}
	words, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic}, words)
	assert.FileExists(t, filepath.Join(dir, "out", "vis.comp.spv"))
}

func TestCompilerReportsFailure(t *testing.T) {
	dir := t.TempDir()
	c := &Compiler{Binary: filepath.Join(dir, "no-such-glslc"), OutputDir: dir}
	_, err := c.Compile(context.Background(), filepath.Join(dir, "vis.comp"))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "vis.comp")
}
