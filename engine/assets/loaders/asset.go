package loaders

import (
	"time"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// Asset is a file read from disk together with what its loader derived
// from it.
type Asset struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     []byte
	LoadedAt time.Time

	// Reflection is set for shader sources.
	Reflection *shader.Reflection
	// Words is set for SPIR-V binaries.
	Words []uint32
}
