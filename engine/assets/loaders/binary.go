package loaders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/spectra/engine/shader"
)

// BinaryLoader reads a precompiled SPIR-V module.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	words, err := shader.DecodeSPIRV(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Asset{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
		LoadedAt: time.Now(),
		Words:    words,
	}, nil
}
