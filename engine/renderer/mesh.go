package renderer

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/assets/loaders"
)

// Vertex is a 2D position with an RGB colour.
type Vertex struct {
	Pos   [2]float32
	Color [3]float32
}

var vertexSize = uint32(unsafe.Sizeof(Vertex{}))

func VertexBindingDescription() VertexBinding {
	return VertexBinding{
		Binding: 0,
		Stride:  vertexSize,
	}
}

func VertexAttributeDescriptions() []VertexAttribute {
	return []VertexAttribute{
		{
			Location: 0,
			Binding:  0,
			Format:   FormatR32G32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   FormatR32G32B32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
	}
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// Mesh is an uploaded vertex buffer with an optional 16 bit index buffer.
type Mesh struct {
	vertexBuffer Buffer
	vertexCount  uint32
	indexBuffer  Buffer
	indexCount   uint32
}

func (m *Mesh) VertexCount() uint32 {
	return m.vertexCount
}

func (m *Mesh) IndexCount() uint32 {
	return m.indexCount
}

func (m *Mesh) Indexed() bool {
	return m.indexBuffer != nil
}

// Record binds the buffers and issues the draw.
func (m *Mesh) Record(cb CommandBuffer) {
	cb.BindVertexBuffers([]Buffer{m.vertexBuffer}, []uint64{0})
	if m.indexBuffer != nil {
		cb.BindIndexBuffer(m.indexBuffer, 0, IndexTypeUint16)
		cb.DrawIndexed(m.indexCount, 1, 0, 0, 0)
		return
	}
	cb.Draw(m.vertexCount, 1, 0, 0)
}

func (m *Mesh) Destroy() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
}

type MeshFactory struct {
	device Device
}

func NewMeshFactory(device Device) *MeshFactory {
	return &MeshFactory{device: device}
}

// CreateMesh uploads the vertices and, when indices is non-empty, the indices.
func (f *MeshFactory) CreateMesh(vertices []Vertex, indices []uint16) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, errors.New("mesh needs at least one vertex")
	}
	vb, err := f.device.UploadBuffer(sliceBytes(vertices), BufferUsageVertex|BufferUsageTransferDst)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upload vertex buffer")
	}
	mesh := &Mesh{
		vertexBuffer: vb,
		vertexCount:  uint32(len(vertices)),
	}
	if len(indices) > 0 {
		ib, err := f.device.UploadBuffer(sliceBytes(indices), BufferUsageIndex|BufferUsageTransferDst)
		if err != nil {
			mesh.Destroy()
			return nil, errors.Wrap(err, "failed to upload index buffer")
		}
		mesh.indexBuffer = ib
		mesh.indexCount = uint32(len(indices))
	}
	return mesh, nil
}

// CreateMeshFromData uploads a mesh decoded by the asset loader.
func (f *MeshFactory) CreateMeshFromData(data *loaders.MeshData) (*Mesh, error) {
	vertices := make([]Vertex, len(data.Vertices))
	for i, v := range data.Vertices {
		vertices[i] = Vertex{Pos: v.Pos, Color: v.Color}
	}
	return f.CreateMesh(vertices, data.Indices)
}
