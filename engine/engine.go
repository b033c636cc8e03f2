package engine

import (
	"sync/atomic"

	"github.com/EngoEngine/ecs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/assets"
	"github.com/spaghettifunk/wind/engine/assets/loaders"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/platform"
	"github.com/spaghettifunk/wind/engine/renderer"
	"github.com/spaghettifunk/wind/engine/renderer/vulkan"
	"github.com/spaghettifunk/wind/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

// metricsInterval is how often, in seconds, frame metrics are logged.
const metricsInterval = 5.0

type Engine struct {
	ID           uuid.UUID
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      *vulkan.Backend
	renderer     *renderer.Renderer
	world        *ecs.World
	renderSystem *systems.RenderSystem
	cameraSystem *systems.CameraSystem
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.FrameMetrics
	lastTime     float64
}

// New loads the configuration and prepares the subsystems that need no window.
func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	cfg, err := core.LoadConfig(g.ApplicationConfig.ConfigPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if g.ApplicationConfig.Name != "" {
		cfg.Application.Name = g.ApplicationConfig.Name
	}
	core.LogSetLevel(core.ParseLogLevel(cfg.Log.Level))

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		ID:           uuid.New(),
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		platform:     platform.New(),
		assetManager: am,
		width:        cfg.Application.Width,
		height:       cfg.Application.Height,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
	}
	core.LogInfo("Engine %s created for %q", e.ID, cfg.Application.Name)
	return e, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return errors.Errorf("engine cannot initialize from stage %d", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.Width, app.Height); err != nil {
		return err
	}

	rendererConfig, err := renderer.NewConfig(e.config)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	e.backend, err = vulkan.New(rendererConfig, e.platform)
	if err != nil {
		core.LogError("failed to initialize the vulkan backend: %s", err)
		return err
	}

	e.renderer, err = renderer.New(e.backend, e.platform, rendererConfig)
	if err != nil {
		core.LogError("failed to initialize the renderer: %s", err)
		return err
	}

	if e.config.Renderer.HotReloadShaders {
		e.assetManager.OnChange(e.onAssetChanged)
	}
	if err := e.assetManager.Initialize(app.AssetRoot); err != nil {
		core.LogError(err.Error())
		return err
	}

	e.world = &ecs.World{}
	e.cameraSystem = systems.NewCameraSystem(e.renderer)
	e.renderSystem = systems.NewRenderSystem(e.renderer)
	e.world.AddSystem(e.cameraSystem)
	e.world.AddSystem(e.renderSystem)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Run drives the frame loop until Quit is called, the window closes or a frame fails.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Errorf("engine cannot run from stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var sinceReport float64 = 0

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}

		if e.isSuspended {
			// keep the clock from jumping when the window comes back
			e.clock.Update()
			e.lastTime = e.clock.Elapsed()
			e.platform.Sleep(16)
			continue
		}

		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				e.isRunning.Store(false)
				return err
			}
		}

		e.world.Update(float32(delta))
		if err := e.renderSystem.Err(); err != nil {
			core.LogError("Frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		var frameElapsedTime float64 = platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		sinceReport += delta
		if sinceReport >= metricsInterval {
			fps, ms := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms, frames: %d", fps, ms, e.metrics.TotalFrames())
			sinceReport = 0
		}

		core.InputUpdate()
		e.lastTime = currentTime
	}

	return nil
}

// Quit asks the frame loop to stop after the current frame. Safe to call from
// any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

// Shutdown releases everything in reverse creation order. The game's meshes
// are released after the device went idle and before it is destroyed.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	var result error

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			result = err
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
			result = err
		}
	}
	if e.backend != nil {
		e.backend.Destroy()
	}
	if err := e.assetManager.Shutdown(); err != nil {
		core.LogError(err.Error())
		result = err
	}
	if err := e.platform.Shutdown(); err != nil {
		result = err
	}
	if err := core.EventSystemShutdown(); err != nil {
		result = err
	}
	if err := core.InputShutdown(); err != nil {
		result = err
	}

	e.currentStage = EngineStageShutdown
	core.LogInfo("Engine shut down.")
	return result
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) World() *ecs.World {
	return e.world
}

func (e *Engine) RenderSystem() *systems.RenderSystem {
	return e.renderSystem
}

func (e *Engine) CameraSystem() *systems.CameraSystem {
	return e.cameraSystem
}

func (e *Engine) AssetManager() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Quit()
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	case core.KEY_R:
		if e.renderer != nil {
			core.LogInfo("Reloading shaders.")
			e.renderer.ReloadShaders()
		}
	}
}

// onResized only tracks suspension; the renderer detects the new size itself.
func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
}

// onAssetChanged runs on the watcher goroutine.
func (e *Engine) onAssetChanged(info assets.AssetInfo) {
	if info.Type != loaders.ResourceTypeShader {
		return
	}
	core.LogInfo("Shader %s changed, pipeline will be rebuilt.", info.Path)
	e.renderer.ReloadShaders()
}
