package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// VertexData is one vertex as written in a .mesh file.
type VertexData struct {
	Pos   [2]float32 `toml:"pos"`
	Color [3]float32 `toml:"color"`
}

// MeshData is the content of a .mesh file: a vertex list and optional 16 bit indices.
//
//	indices = [0, 1, 2]
//	[[vertices]]
//	pos = [0.0, -0.5]
//	color = [1.0, 0.0, 0.0]
type MeshData struct {
	Vertices []VertexData `toml:"vertices"`
	Indices  []uint16     `toml:"indices"`
}

func ParseMesh(data []byte) (*MeshData, error) {
	var m MeshData
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to decode mesh")
	}
	if len(m.Vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return nil, errors.Errorf("index %d at position %d is out of range (%d vertices)", idx, i, len(m.Vertices))
		}
	}
	return &m, nil
}

type MeshLoader struct{}

func (ml *MeshLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mesh %s", path)
	}
	mesh, err := ParseMesh(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid mesh %s", path)
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath: path,
		Type:     ResourceTypeMesh,
		DataSize: uint64(len(data)),
		Data:     mesh,
	}, nil
}

func (ml *MeshLoader) Unload(*Resource) error {
	return nil
}
