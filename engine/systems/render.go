package systems

import (
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

// RenderSystemPriority keeps rendering after every other system in the update.
const RenderSystemPriority = -1000

// FrameRenderer draws one complete frame.
type FrameRenderer interface {
	DrawFrame(meshes []*renderer.Mesh, overlays ...renderer.Overlay) error
}

type MeshFace interface {
	GetMeshComponent() *MeshComponent
}

type Renderable interface {
	ecs.BasicFace
	MeshFace
}

type renderEntity struct {
	*ecs.BasicEntity
	*MeshComponent
}

// RenderSystem submits the visible meshes of its entities as one frame per
// world update, in the order the entities were added.
type RenderSystem struct {
	Renderer FrameRenderer
	Overlays []renderer.Overlay

	entities []renderEntity
	meshes   []*renderer.Mesh

	mu  sync.Mutex
	err error
}

func NewRenderSystem(r FrameRenderer) *RenderSystem {
	return &RenderSystem{Renderer: r}
}

func (r *RenderSystem) Priority() int {
	return RenderSystemPriority
}

func (r *RenderSystem) New(w *ecs.World) {
	core.LogDebug("render system added to the world")
}

func (r *RenderSystem) Add(basic *ecs.BasicEntity, mesh *MeshComponent) {
	r.entities = append(r.entities, renderEntity{basic, mesh})
}

func (r *RenderSystem) AddByInterface(o ecs.Identifier) {
	obj := o.(Renderable)
	r.Add(obj.GetBasicEntity(), obj.GetMeshComponent())
}

func (r *RenderSystem) Remove(basic ecs.BasicEntity) {
	idx := -1
	for i, e := range r.entities {
		if e.BasicEntity.ID() == basic.ID() {
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.entities = append(r.entities[:idx], r.entities[idx+1:]...)
	}
}

// Update draws the frame. A failure is kept and reported by Err, since the
// world has no error path.
func (r *RenderSystem) Update(dt float32) {
	if r.Err() != nil {
		return
	}
	r.meshes = r.meshes[:0]
	for _, e := range r.entities {
		if e.Hidden || e.Mesh == nil {
			continue
		}
		r.meshes = append(r.meshes, e.Mesh)
	}
	if err := r.Renderer.DrawFrame(r.meshes, r.Overlays...); err != nil {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}
}

// Err returns the first frame error, if any.
func (r *RenderSystem) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *RenderSystem) Len() int {
	return len(r.entities)
}
