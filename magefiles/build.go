//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage in assets/shaders to <name>.<stage>.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the demo binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/wind", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, stage := range []string{"vert", "frag"} {
		sources, err := filepath.Glob(filepath.Join(shaderDir, "*."+stage))
		if err != nil {
			return err
		}
		for _, src := range sources {
			name := strings.TrimSuffix(filepath.Base(src), "."+stage)
			out := filepath.Join(shaderDir, fmt.Sprintf("%s.%s.spv", name, stage))
			if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
				return err
			}
		}
	}
	return nil
}
