package systems

import (
	gomath "math"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/math"
)

// CameraSystemPriority runs the camera before the render system.
const CameraSystemPriority = 100

// CameraSink receives the active camera every update.
type CameraSink interface {
	UpdateCamera(position, direction, up mgl32.Vec3)
}

type CameraFace interface {
	GetCameraComponent() *CameraComponent
}

type Cameraable interface {
	ecs.BasicFace
	CameraFace
}

// CameraSystem turns the active camera with the arrow keys and hands its view
// to the sink. The last camera added is the active one.
type CameraSystem struct {
	Sink CameraSink

	basic  *ecs.BasicEntity
	camera *CameraComponent
}

func NewCameraSystem(sink CameraSink) *CameraSystem {
	return &CameraSystem{Sink: sink}
}

func (c *CameraSystem) Priority() int {
	return CameraSystemPriority
}

func (c *CameraSystem) Add(basic *ecs.BasicEntity, camera *CameraComponent) {
	c.basic = basic
	c.camera = camera
}

func (c *CameraSystem) AddByInterface(o ecs.Identifier) {
	obj := o.(Cameraable)
	c.Add(obj.GetBasicEntity(), obj.GetCameraComponent())
}

func (c *CameraSystem) Remove(basic ecs.BasicEntity) {
	if c.basic != nil && c.basic.ID() == basic.ID() {
		c.basic = nil
		c.camera = nil
	}
}

func (c *CameraSystem) Update(dt float32) {
	if c.camera == nil {
		return
	}
	step := c.camera.TurnSpeed * dt
	if core.InputIsKeyDown(core.KEY_LEFT) {
		c.camera.Yaw -= step
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) {
		c.camera.Yaw += step
	}
	if core.InputIsKeyDown(core.KEY_UP) {
		c.camera.Pitch += step
	}
	if core.InputIsKeyDown(core.KEY_DOWN) {
		c.camera.Pitch -= step
	}
	c.camera.Pitch = math.Clamp(c.camera.Pitch, -89, 89)

	if c.Sink != nil {
		c.Sink.UpdateCamera(c.camera.Position, Direction(c.camera.Yaw, c.camera.Pitch), mgl32.Vec3{0, 1, 0})
	}
}

// Direction returns the unit view direction for yaw and pitch in degrees.
func Direction(yaw, pitch float32) mgl32.Vec3 {
	y := float64(mgl32.DegToRad(yaw))
	p := float64(mgl32.DegToRad(pitch))
	return mgl32.Vec3{
		float32(gomath.Cos(p) * gomath.Cos(y)),
		float32(gomath.Sin(p)),
		float32(gomath.Cos(p) * gomath.Sin(y)),
	}.Normalize()
}
