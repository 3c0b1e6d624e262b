package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/layout"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
	"github.com/spaghettifunk/spectra/engine/shader"
)

type fakeCompiler struct {
	calls int
	err   error
}

func (c *fakeCompiler) Compile(ctx context.Context, source string) ([]uint32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []uint32{shader.SPIRVMagic, 0x00010000}, nil
}

func TestNewProgram(t *testing.T) {
	dev := newDevice()
	p := newProgram(t, dev, visualizerShader)

	assert.Equal(t, "test.comp", p.Name())
	assert.Equal(t, shader.WorkgroupShape{X: 16, Y: 16, Z: 1}, p.Workgroup())
	require.NotNil(t, p.PushConstants)
	layouts := p.SetLayouts()
	require.Len(t, layouts, 2)

	cfg := dev.Pipeline(p.Pipeline())
	require.NotNil(t, cfg)
	assert.Equal(t, "main", cfg.EntryPoint)
	assert.Equal(t, uint32(8), cfg.PushConstants.Size)
	require.Len(t, cfg.SetLayouts, 3)
	assert.Equal(t, layouts[0].Handle, cfg.SetLayouts[0])
	assert.Equal(t, layouts[1].Handle, cfg.SetLayouts[2])
	assert.Empty(t, dev.SetLayoutBindings(cfg.SetLayouts[1]), "unused set 1 is an empty layout")

	assert.Len(t, p.DescriptorSets(0), 2)
	assert.Len(t, p.DescriptorSets(1), 2)
	assert.Panics(t, func() { p.DescriptorSets(2) })
	assert.Panics(t, func() { p.BoundSets(-1) })

	bound := p.BoundSets(1)
	require.Len(t, bound, 2)
	assert.Equal(t, metadata.BoundDescriptorSet{Index: 0, Set: p.DescriptorSets(1)[0]}, bound[0])
	assert.Equal(t, metadata.BoundDescriptorSet{Index: 2, Set: p.DescriptorSets(1)[1]}, bound[1])

	p.Destroy()
	assert.Zero(t, dev.Live().Total())
	assert.Empty(t, dev.ValidationErrors())
}

func TestNewProgramLayoutErrors(t *testing.T) {
	dev := newDevice()
	refl, err := shader.Reflect("dup.comp", `
layout(binding = 0) uniform image2D a;
layout(binding = 0) uniform image2D b;
`)
	require.NoError(t, err)
	_, err = NewProgram(dev, refl, []uint32{shader.SPIRVMagic})
	assert.True(t, errors.Is(err, layout.ErrDuplicateBinding))

	refl, err = shader.Reflect("pc.comp", `layout(push_constant) uniform PC { vec3 dir; } pc;`)
	require.NoError(t, err)
	_, err = NewProgram(dev, refl, []uint32{shader.SPIRVMagic})
	assert.True(t, errors.Is(err, layout.ErrUnsupported))
	assert.Zero(t, dev.Live().Total())
}

func TestNewProgramRollsBackOnPipelineFailure(t *testing.T) {
	dev := newDevice()
	refl, err := shader.Reflect("x.comp", plainShader)
	require.NoError(t, err)

	_, err = NewProgram(dev, refl, nil)
	assert.True(t, errors.Is(err, core.ErrUnknown))
	assert.Zero(t, dev.Live().Total())
}

func TestLoadProgramAndRebuild(t *testing.T) {
	dev := newDevice()
	path := filepath.Join(t.TempDir(), "vis.comp")
	require.NoError(t, os.WriteFile(path, []byte(plainShader), 0o644))

	compiler := &fakeCompiler{}
	p, err := LoadProgram(context.Background(), dev, compiler, path)
	require.NoError(t, err)
	defer p.Destroy()
	assert.Equal(t, "vis.comp", p.Name())
	assert.Nil(t, p.PushConstants)

	require.NoError(t, os.WriteFile(path, []byte(visualizerShader), 0o644))
	next, err := p.Rebuild(context.Background())
	require.NoError(t, err)
	defer next.Destroy()
	assert.NotEqual(t, p.ID, next.ID)
	assert.NotNil(t, next.PushConstants)
	assert.Equal(t, 2, compiler.calls)

	compiler.err = errors.New("glslc: syntax error")
	_, err = p.Rebuild(context.Background())
	assert.EqualError(t, err, "glslc: syntax error")
}

func TestLoadProgramReflectionFailure(t *testing.T) {
	dev := newDevice()
	path := filepath.Join(t.TempDir(), "bad.comp")
	require.NoError(t, os.WriteFile(path, []byte(`uniform image2D a, b;`), 0o644))

	compiler := &fakeCompiler{}
	_, err := LoadProgram(context.Background(), dev, compiler, path)
	assert.True(t, shader.IsKind(err, shader.ErrKindMultipleDeclarators))
	assert.Zero(t, compiler.calls)
}

func TestRebuildRequiresSource(t *testing.T) {
	dev := newDevice()
	p := newProgram(t, dev, plainShader)
	defer p.Destroy()
	_, err := p.Rebuild(context.Background())
	assert.Error(t, err)
}

func TestNewProgramSharesOneEmptyLayout(t *testing.T) {
	dev := newDevice()
	p := newProgram(t, dev, `
layout(binding = 0, set = 3) buffer Data { float v[4]; } data;
`)
	cfg := dev.Pipeline(p.Pipeline())
	require.Len(t, cfg.SetLayouts, 4)
	assert.Equal(t, cfg.SetLayouts[0], cfg.SetLayouts[1])
	assert.Equal(t, cfg.SetLayouts[0], cfg.SetLayouts[2])
	assert.NotEqual(t, cfg.SetLayouts[0], cfg.SetLayouts[3])
	assert.Equal(t, 2, dev.Live().SetLayouts)
	assert.Equal(t, []metadata.BoundDescriptorSet{{Index: 3, Set: p.DescriptorSets(0)[0]}}, p.BoundSets(0))

	p.Destroy()
	assert.Zero(t, dev.Live().Total())
	assert.Empty(t, dev.ValidationErrors())
}
