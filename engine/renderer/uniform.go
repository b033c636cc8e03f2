package renderer

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/math"
)

// UniformBufferObject matches the vertex shader's binding 0 block.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

var uniformBufferSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

func (u *UniformBufferObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), uniformBufferSize)
}

// Camera is the last camera handed to the renderer.
type Camera struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Up        mgl32.Vec3
}

func DefaultCamera() Camera {
	return Camera{
		Position:  mgl32.Vec3{0, 0, 2},
		Direction: mgl32.Vec3{0, 0, -1},
		Up:        mgl32.Vec3{0, 1, 0},
	}
}

// NewUniformBufferObject builds identity model, look-direction view and a Vulkan
// perspective projection for the given extent.
func NewUniformBufferObject(camera Camera, extent Extent2D) UniformBufferObject {
	return UniformBufferObject{
		Model: mgl32.Ident4(),
		View:  math.LookDirection(camera.Position, camera.Direction, camera.Up),
		Proj:  math.VulkanPerspective(math.Aspect(extent.Width, extent.Height)),
	}
}

// CreateUniformBuffers allocates one host visible uniform buffer per swapchain image.
func CreateUniformBuffers(device Device, count int) ([]Buffer, error) {
	buffers := make([]Buffer, 0, count)
	for i := 0; i < count; i++ {
		b, err := device.CreateBuffer(uniformBufferSize, BufferUsageUniform)
		if err != nil {
			DestroyBuffers(buffers)
			return nil, errors.Wrapf(err, "failed to create uniform buffer %d", i)
		}
		buffers = append(buffers, b)
	}
	return buffers, nil
}

func DestroyBuffers(buffers []Buffer) {
	for _, b := range buffers {
		b.Destroy()
	}
}
