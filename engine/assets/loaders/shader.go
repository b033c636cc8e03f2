package loaders

import (
	"path/filepath"
	"strings"
)

type ShaderLoader struct{}

// Load returns the SPIR-V words of a compiled stage as a []uint32.
func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	code, err := LoadSPIRV(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".spv"),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(code) * 4),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(*Resource) error {
	return nil
}
