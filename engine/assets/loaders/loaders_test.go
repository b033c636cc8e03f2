package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvBytes(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestLoadSPIRV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.vert.spv")
	require.NoError(t, os.WriteFile(path, spirvBytes(SPIRVMagic, 0x00010000, 42), 0o644))

	code, err := LoadSPIRV(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000, 42}, code)
}

func TestLoadSPIRVRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSPIRV(filepath.Join(dir, "missing.spv"))
	assert.Error(t, err)

	truncated := filepath.Join(dir, "truncated.spv")
	require.NoError(t, os.WriteFile(truncated, append(spirvBytes(SPIRVMagic), 0x01), 0o644))
	_, err = LoadSPIRV(truncated)
	assert.Error(t, err)

	magic := filepath.Join(dir, "magic.spv")
	require.NoError(t, os.WriteFile(magic, spirvBytes(0xdeadbeef), 0o644))
	_, err = LoadSPIRV(magic)
	assert.Error(t, err)
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag.spv")
	require.NoError(t, os.WriteFile(path, spirvBytes(SPIRVMagic, 7), 0o644))

	res, err := (&ShaderLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shader.frag", res.Name)
	assert.Equal(t, ResourceTypeShader, res.Type)
	assert.Equal(t, uint64(8), res.DataSize)
	assert.Equal(t, []uint32{SPIRVMagic, 7}, res.Data)
}

const quad = `
indices = [0, 1, 2, 2, 3, 0]

[[vertices]]
pos = [-0.5, -0.5]
color = [1.0, 0.0, 0.0]

[[vertices]]
pos = [0.5, -0.5]
color = [0.0, 1.0, 0.0]

[[vertices]]
pos = [0.5, 0.5]
color = [0.0, 0.0, 1.0]

[[vertices]]
pos = [-0.5, 0.5]
color = [1.0, 1.0, 1.0]
`

func TestParseMesh(t *testing.T) {
	m, err := ParseMesh([]byte(quad))
	require.NoError(t, err)
	require.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint16{0, 1, 2, 2, 3, 0}, m.Indices)
	assert.Equal(t, [2]float32{0.5, -0.5}, m.Vertices[1].Pos)
	assert.Equal(t, [3]float32{0, 0, 1}, m.Vertices[2].Color)
}

func TestParseMeshErrors(t *testing.T) {
	_, err := ParseMesh([]byte(`indices = [0]`))
	assert.Error(t, err)

	_, err = ParseMesh([]byte("indices = [3]\n[[vertices]]\npos = [0.0, 0.0]\ncolor = [1.0, 1.0, 1.0]\n"))
	assert.Error(t, err)

	_, err = ParseMesh([]byte(`vertices = "nope"`))
	assert.Error(t, err)
}

func TestMeshLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.mesh")
	require.NoError(t, os.WriteFile(path, []byte(quad), 0o644))

	res, err := (&MeshLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quad", res.Name)
	assert.Equal(t, ResourceTypeMesh, res.Type)
	m, ok := res.Data.(*MeshData)
	require.True(t, ok)
	assert.Len(t, m.Indices, 6)
}
