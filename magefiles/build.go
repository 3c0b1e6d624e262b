//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every compute shader under shaders/ to SPIR-V next to it.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the spectra binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	// glfw is a cgo binding.
	_, err := executeCmd("go", withArgs("build", "-o", "bin/spectra", "."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}

func buildShaders() error {
	sources, err := filepath.Glob("shaders/*.comp")
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shaders found in shaders/")
	}
	compiler, err := glslc()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := executeCmd(compiler, withArgs("-fshader-stage=compute", "-O", src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
