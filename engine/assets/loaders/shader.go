package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// ShaderLoader reads a GLSL compute source and reflects it.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader source: %w", err)
	}
	name := filepath.Base(path)
	refl, err := shader.Reflect(name, string(data))
	if err != nil {
		return nil, err
	}
	return &Asset{
		Name:       name,
		FullPath:   path,
		DataSize:   uint64(len(data)),
		Data:       data,
		LoadedAt:   time.Now(),
		Reflection: refl,
	}, nil
}
