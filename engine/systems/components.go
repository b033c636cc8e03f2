package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/wind/engine/renderer"
)

// MeshComponent makes an entity drawable by the RenderSystem. The mesh is owned
// by whoever created it.
type MeshComponent struct {
	Mesh   *renderer.Mesh
	Hidden bool
}

func (c *MeshComponent) GetMeshComponent() *MeshComponent {
	return c
}

// CameraComponent is a free-look camera. Yaw and Pitch are in degrees; yaw -90
// looks down -Z.
type CameraComponent struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	// degrees per second applied while an arrow key is held
	TurnSpeed float32
}

func NewCameraComponent() *CameraComponent {
	return &CameraComponent{
		Position:  mgl32.Vec3{0, 0, 2},
		Yaw:       -90,
		Pitch:     0,
		TurnSpeed: 60,
	}
}

func (c *CameraComponent) GetCameraComponent() *CameraComponent {
	return c
}
