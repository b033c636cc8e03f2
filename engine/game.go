package engine

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Initialize runs once the renderer and the world exist.
type Initialize func(e *Engine) error

// Update runs once per frame before the world is updated.
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error

// Shutdown runs after the device is idle and before it is destroyed, so the
// game can release the meshes it created.
type Shutdown func() error
