package math

import "github.com/go-gl/mathgl/mgl32"

const (
	CameraFovDegrees float32 = 45.0
	CameraNear       float32 = 0.1
	CameraFar        float32 = 10.0
)

// LookDirection builds a view matrix for a camera at pos looking along dir.
func LookDirection(pos, dir, up mgl32.Vec3) mgl32.Mat4 {
	target := pos.Add(dir)
	return mgl32.LookAtV(pos, target, up)
}

// VulkanPerspective is an OpenGL style perspective projection with the Y axis
// flipped for Vulkan clip space.
func VulkanPerspective(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(CameraFovDegrees), aspect, CameraNear, CameraFar)
	// column 1, row 1
	proj[5] *= -1
	return proj
}
