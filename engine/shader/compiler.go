package shader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/spectra/engine/core"
)

// CompileError carries the compiler diagnostics of a failed build.
type CompileError struct {
	Source string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: %v\n%s", e.Source, e.Err, strings.TrimSpace(e.Output))
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compiler turns GLSL compute source into SPIR-V by running glslc.
type Compiler struct {
	// Binary is the glslc executable; defaults to "glslc" on PATH.
	Binary string
	// OutputDir receives the .spv files; defaults to a temporary directory.
	OutputDir string
	// Args are extra compiler flags such as -O or -g.
	Args []string
}

// Compile builds source and returns the decoded SPIR-V words.
func (c *Compiler) Compile(ctx context.Context, source string) ([]uint32, error) {
	out, err := c.outputPath(source)
	if err != nil {
		return nil, err
	}

	bin := c.Binary
	if bin == "" {
		bin = "glslc"
	}
	args := append([]string{"-fshader-stage=compute"}, c.Args...)
	args = append(args, source, "-o", out)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	core.LogDebug("compiling shader: %s %s", bin, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return nil, &CompileError{Source: source, Output: stderr.String(), Err: err}
	}

	code, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled shader: %w", err)
	}
	return DecodeSPIRV(code)
}

func (c *Compiler) outputPath(source string) (string, error) {
	dir := c.OutputDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "spectra-shaders")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create shader output dir: %w", err)
	}
	return filepath.Join(dir, filepath.Base(source)+".spv"), nil
}
