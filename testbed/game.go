package testbed

import (
	"path/filepath"

	"github.com/EngoEngine/ecs"
	"github.com/spaghettifunk/wind/engine"
	"github.com/spaghettifunk/wind/engine/assets/loaders"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
	"github.com/spaghettifunk/wind/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type quad struct {
	ecs.BasicEntity
	systems.MeshComponent
}

type camera struct {
	ecs.BasicEntity
	*systems.CameraComponent
}

type gameState struct {
	engine *engine.Engine
	meshes []*renderer.Mesh
	quad   *quad

	width  uint32
	height uint32
}

// fallbackQuad is drawn when assets/meshes/quad.mesh is missing.
var fallbackQuad = struct {
	vertices []renderer.Vertex
	indices  []uint16
}{
	vertices: []renderer.Vertex{
		{Pos: [2]float32{-0.5, -0.5}, Color: [3]float32{1, 0, 0}},
		{Pos: [2]float32{0.5, -0.5}, Color: [3]float32{0, 1, 0}},
		{Pos: [2]float32{0.5, 0.5}, Color: [3]float32{0, 0, 1}},
		{Pos: [2]float32{-0.5, 0.5}, Color: [3]float32{1, 1, 1}},
	},
	indices: []uint16{0, 1, 2, 2, 3, 0},
}

func NewTestGame(configPath string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				ConfigPath: configPath,
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogInfo("initializing testbed...")
	state := g.state()
	state.engine = e

	mesh, err := g.loadQuad(e)
	if err != nil {
		return err
	}
	state.meshes = append(state.meshes, mesh)

	state.quad = &quad{
		BasicEntity:   ecs.NewBasic(),
		MeshComponent: systems.MeshComponent{Mesh: mesh},
	}
	e.RenderSystem().Add(&state.quad.BasicEntity, &state.quad.MeshComponent)

	cam := &camera{
		BasicEntity:     ecs.NewBasic(),
		CameraComponent: systems.NewCameraComponent(),
	}
	e.CameraSystem().Add(&cam.BasicEntity, cam.CameraComponent)
	return nil
}

func (g *TestGame) loadQuad(e *engine.Engine) (*renderer.Mesh, error) {
	path := filepath.Join(e.Config().Application.AssetRoot, "meshes", "quad.mesh")
	res, err := e.AssetManager().LoadAsset(path)
	if err != nil {
		core.LogWarn("falling back to the built-in quad: %s", err)
		return e.Renderer().MeshFactory().CreateMesh(fallbackQuad.vertices, fallbackQuad.indices)
	}
	defer func() { _ = e.AssetManager().UnloadAsset(res) }()
	return e.Renderer().MeshFactory().CreateMeshFromData(res.Data.(*loaders.MeshData))
}

func (g *TestGame) Update(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	for _, m := range state.meshes {
		m.Destroy()
	}
	state.meshes = nil
	return nil
}
