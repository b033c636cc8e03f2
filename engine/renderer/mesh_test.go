package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/wind/engine/assets/loaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayout(t *testing.T) {
	b := VertexBindingDescription()
	assert.Equal(t, uint32(0), b.Binding)
	assert.Equal(t, uint32(20), b.Stride)

	attrs := VertexAttributeDescriptions()
	require.Len(t, attrs, 2)
	assert.Equal(t, VertexAttribute{Location: 0, Binding: 0, Format: FormatR32G32Sfloat, Offset: 0}, attrs[0])
	assert.Equal(t, VertexAttribute{Location: 1, Binding: 0, Format: FormatR32G32B32Sfloat, Offset: 8}, attrs[1])
}

func TestUniformBufferObject(t *testing.T) {
	assert.Equal(t, uint64(192), uniformBufferSize)

	ubo := NewUniformBufferObject(DefaultCamera(), Extent2D{Width: 800, Height: 600})
	assert.Equal(t, mgl32.Ident4(), ubo.Model)
	assert.Less(t, ubo.Proj[5], float32(0))
	assert.Len(t, ubo.Bytes(), 192)

	buffers, err := CreateUniformBuffers(newFakeDevice(), 3)
	require.NoError(t, err)
	require.Len(t, buffers, 3)
	assert.Equal(t, uint64(192), buffers[0].Size())
	assert.Equal(t, BufferUsageUniform, buffers[0].(*fakeBuffer).usage)
}

func TestCreateMesh(t *testing.T) {
	d := newFakeDevice()
	f := NewMeshFactory(d)

	_, err := f.CreateMesh(nil, nil)
	assert.Error(t, err)

	tri, err := f.CreateMesh([]Vertex{{}, {}, {}}, nil)
	require.NoError(t, err)
	assert.False(t, tri.Indexed())
	assert.Equal(t, uint32(3), tri.VertexCount())
	assert.Equal(t, 1, d.liveCount("buffer"))
	vb := tri.vertexBuffer.(*fakeBuffer)
	assert.Equal(t, uint64(60), vb.Size())
	assert.Equal(t, BufferUsageVertex|BufferUsageTransferDst, vb.usage)

	cb := &fakeCommandBuffer{fakeObject: d.newObject("commandBuffer")}
	tri.Record(cb)
	assert.Equal(t, []string{"bindVertexBuffers", "draw"}, cb.ops)

	quad, err := f.CreateMeshFromData(&loaders.MeshData{
		Vertices: []loaders.VertexData{
			{Pos: [2]float32{-1, -1}, Color: [3]float32{1, 0, 0}},
			{Pos: [2]float32{1, -1}, Color: [3]float32{0, 1, 0}},
			{Pos: [2]float32{1, 1}, Color: [3]float32{0, 0, 1}},
			{Pos: [2]float32{-1, 1}, Color: [3]float32{1, 1, 1}},
		},
		Indices: []uint16{0, 1, 2, 2, 3, 0},
	})
	require.NoError(t, err)
	assert.True(t, quad.Indexed())
	assert.Equal(t, uint32(6), quad.IndexCount())
	assert.Equal(t, uint64(12), quad.indexBuffer.Size())
	assert.Equal(t, 3, d.liveCount("buffer"))

	tri.Destroy()
	quad.Destroy()
	quad.Destroy()
	assert.Equal(t, 0, d.liveCount("buffer"))
	assert.Empty(t, d.violations)
}
