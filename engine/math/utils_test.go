package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), Clamp(uint32(1), 5, 10))
	assert.Equal(t, uint32(10), Clamp(uint32(50), 5, 10))
	assert.Equal(t, uint32(7), Clamp(uint32(7), 5, 10))
	assert.Equal(t, float32(-1), Clamp(float32(-3), -1, 1))
}

func TestAspect(t *testing.T) {
	assert.Equal(t, float32(2), Aspect(200, 100))
	assert.Equal(t, float32(1), Aspect(200, 0))
}

func TestVulkanPerspectiveFlipsY(t *testing.T) {
	gl := mgl32.Perspective(mgl32.DegToRad(CameraFovDegrees), 1.5, CameraNear, CameraFar)
	vk := VulkanPerspective(1.5)
	assert.Equal(t, -gl.At(1, 1), vk.At(1, 1))
	assert.Equal(t, gl.At(0, 0), vk.At(0, 0))
	assert.Equal(t, gl.At(2, 3), vk.At(2, 3))
}

func TestLookDirection(t *testing.T) {
	pos := mgl32.Vec3{0, 0, 2}
	view := LookDirection(pos, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	// the camera position maps to the view-space origin
	p := view.Mul4x1(pos.Vec4(1))
	assert.InDelta(t, 0, p.X(), 1e-6)
	assert.InDelta(t, 0, p.Y(), 1e-6)
	assert.InDelta(t, 0, p.Z(), 1e-6)
}
