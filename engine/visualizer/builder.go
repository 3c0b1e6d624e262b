package visualizer

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/spectra/engine/assets/loaders"
	"github.com/spaghettifunk/spectra/engine/renderer"
	"github.com/spaghettifunk/spectra/engine/shader"
)

// Builder produces the reflection and SPIR-V a Program is created from. It
// must not touch the device: reloads run it on a worker goroutine.
type Builder interface {
	Build(ctx context.Context) (*shader.Reflection, []uint32, error)
}

type AssetLoader interface {
	LoadAsset(path string) (*loaders.Asset, error)
}

// SourceBuilder reflects Shader and either loads the precompiled SPIRV or
// compiles Shader.
type SourceBuilder struct {
	Assets   AssetLoader
	Compiler renderer.ShaderCompiler
	Shader   string
	SPIRV    string
}

func (b *SourceBuilder) Build(ctx context.Context) (*shader.Reflection, []uint32, error) {
	src, err := b.Assets.LoadAsset(b.Shader)
	if err != nil {
		return nil, nil, err
	}
	if src.Reflection == nil {
		return nil, nil, fmt.Errorf("%s is not a shader source", b.Shader)
	}

	if b.SPIRV != "" {
		bin, err := b.Assets.LoadAsset(b.SPIRV)
		if err != nil {
			return nil, nil, err
		}
		if len(bin.Words) == 0 {
			return nil, nil, fmt.Errorf("%s is not a SPIR-V module", b.SPIRV)
		}
		return src.Reflection, bin.Words, nil
	}

	code, err := b.Compiler.Compile(ctx, b.Shader)
	if err != nil {
		return nil, nil, err
	}
	return src.Reflection, code, nil
}
