package renderer

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// Overlay records extra commands into the frame after the meshes, inside the
// render pass. It must bind its own pipeline.
type Overlay interface {
	Record(cb CommandBuffer) error
}

// Renderer drives the frame lifecycle over a Device: acquire, record, submit and
// present, and rebuilds everything derived from the swapchain when it goes stale.
// It is not safe for concurrent use except for ReloadShaders.
type Renderer struct {
	device Device
	window WindowSizeProvider
	config Config

	swapchain    *SwapchainState
	renderPass   RenderPass
	layout       DescriptorSetLayout
	shaders      *ShaderCode
	pipeline     *GraphicsPipeline
	framebuffers []Framebuffer
	uniforms     []Buffer

	descriptors    *DescriptorPoolAllocator
	descriptorSets *DescriptorPoolAlloc
	recorder       *CommandRecorder
	sync           *FrameSynchronizer
	meshes         *MeshFactory

	camera Camera
	// window size the swapchain was last built for
	lastSize Extent2D

	imageIndex      uint32
	frameStarted    bool
	pendingRecreate bool
	shadersDirty    atomic.Bool
	shutdown        bool
}

// New loads the shaders and builds the frame slots, then the swapchain bundle. A
// window that starts minimized defers the swapchain to the first visible frame.
func New(device Device, window WindowSizeProvider, config Config) (*Renderer, error) {
	if config.FramesInFlight == 0 {
		return nil, errors.New("renderer needs at least one frame in flight")
	}
	r := &Renderer{
		device:      device,
		window:      window,
		config:      config,
		camera:      DefaultCamera(),
		descriptors: NewDescriptorPoolAllocator(device, config.DescriptorPoolSize),
		meshes:      NewMeshFactory(device),
	}

	shaders, err := LoadShaders(config.AssetDir, config.ShaderName)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	r.shaders = shaders

	if r.layout, err = device.CreateDescriptorSetLayout(UniformLayoutBindings()); err != nil {
		err = errors.Wrap(err, "failed to create descriptor set layout")
		core.LogError(err.Error())
		r.Shutdown()
		return nil, err
	}

	if r.sync, err = NewFrameSynchronizer(device, config.FramesInFlight, 0); err != nil {
		core.LogError(err.Error())
		r.Shutdown()
		return nil, err
	}

	if err := r.RecreateSwapchain(); err != nil {
		r.Shutdown()
		return nil, err
	}
	core.LogInfo("Renderer initialized with %d frames in flight.", config.FramesInFlight)
	return r, nil
}

// RecreateSwapchain rebuilds the swapchain and every object derived from it. The
// pipeline is kept unless the surface format changed or the shaders were reloaded.
// While the window is minimized it only marks the swapchain as stale.
func (r *Renderer) RecreateSwapchain() error {
	if r.shutdown {
		return core.ErrRendererShutdown
	}
	if isMinimized(r.window) {
		r.pendingRecreate = true
		core.LogDebug("Window minimized, swapchain recreation deferred.")
		return nil
	}
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "device wait idle failed before swapchain recreation")
	}

	width, height := r.window.CurrentSize()
	swapchain, err := CreateSwapchain(r.device, r.window, SwapchainOptions{
		PreferredFormat:      r.config.PreferredFormat,
		PreferredPresentMode: r.config.PreferredPresentMode,
	}, r.swapchain)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	// Everything below references the old images and has to go first.
	if r.recorder != nil {
		r.recorder.Free()
		r.recorder = nil
	}
	DestroyFramebuffers(r.framebuffers)
	r.framebuffers = nil
	if r.swapchain != nil {
		r.swapchain.Destroy()
	}
	r.swapchain = swapchain
	r.lastSize = Extent2D{Width: width, Height: height}
	// Stays set until the bundle is complete so a failed rebuild is retried by
	// the next BeginFrame.
	r.pendingRecreate = true

	pass, err := CreateRenderPass(r.device, swapchain.Format.Format)
	if err != nil {
		return err
	}
	oldPass := r.renderPass
	r.renderPass = pass

	if r.pipeline == nil || r.pipeline.Format != swapchain.Format.Format || r.shadersDirty.Load() {
		if err := r.rebuildPipeline(); err != nil {
			// the old pipeline was built against oldPass
			if r.pipeline != nil {
				r.pipeline.Destroy()
				r.pipeline = nil
			}
			if oldPass != nil {
				oldPass.Destroy()
			}
			return err
		}
	}
	if oldPass != nil {
		oldPass.Destroy()
	}

	if r.framebuffers, err = CreateFramebuffers(r.device, r.renderPass, swapchain); err != nil {
		return err
	}

	imageCount := swapchain.ImageCount()
	uniforms, err := CreateUniformBuffers(r.device, imageCount)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	layouts := make([]DescriptorSetLayout, imageCount)
	for i := range layouts {
		layouts[i] = r.layout
	}
	sets, err := r.descriptors.Alloc(layouts)
	if err != nil {
		DestroyBuffers(uniforms)
		return err
	}
	if err := r.descriptors.UpdateUniform(sets, uniforms); err != nil {
		sets.Release()
		DestroyBuffers(uniforms)
		return err
	}
	if r.descriptorSets != nil {
		r.descriptorSets.Release()
	}
	DestroyBuffers(r.uniforms)
	r.descriptorSets = sets
	r.uniforms = uniforms

	if r.recorder, err = NewCommandRecorder(r.device, len(r.framebuffers)); err != nil {
		return err
	}

	r.sync.ResetImages(imageCount)
	r.pendingRecreate = false
	core.LogInfo("Swapchain recreated: %dx%d, %d images.", swapchain.Extent.Width, swapchain.Extent.Height, imageCount)
	return nil
}

// rebuildPipeline replaces the pipeline against the current render pass, reloading
// shader code first when it was marked dirty. The device must be idle.
func (r *Renderer) rebuildPipeline() error {
	if r.shadersDirty.Swap(false) {
		shaders, err := LoadShaders(r.config.AssetDir, r.config.ShaderName)
		if err != nil {
			// keep running with the previous code
			core.LogWarn("Shader reload failed: %s", err.Error())
		} else {
			r.shaders = shaders
			core.LogInfo("Shaders %q reloaded.", r.config.ShaderName)
		}
	}
	pipeline, err := CreateGraphicsPipeline(r.device, r.renderPass, r.swapchain.Format.Format, r.layout, r.shaders)
	if err != nil {
		return err
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
	}
	r.pipeline = pipeline
	return nil
}

// ReloadShaders marks the shader code stale. The pipeline is rebuilt at the start
// of the next frame. Safe to call from any goroutine.
func (r *Renderer) ReloadShaders() {
	r.shadersDirty.Store(true)
}

func (r *Renderer) UpdateCamera(position, direction, up mgl32.Vec3) {
	r.camera = Camera{Position: position, Direction: direction, Up: up}
}

// BeginFrame prepares the next frame for drawing. It returns false when the frame
// must be skipped, either because the window is minimized or because the swapchain
// had to be recreated.
func (r *Renderer) BeginFrame() (bool, error) {
	if r.shutdown {
		return false, core.ErrRendererShutdown
	}
	if r.frameStarted {
		return false, errors.Wrap(core.ErrInvalidCommandState, "frame already in progress")
	}
	if err := r.sync.WaitFenceCurrent(); err != nil {
		core.LogError(err.Error())
		return false, err
	}
	if isMinimized(r.window) {
		return false, nil
	}
	if r.pendingRecreate || r.swapchain == nil {
		if err := r.RecreateSwapchain(); err != nil {
			return false, err
		}
	}
	if r.shadersDirty.Load() {
		if err := r.device.WaitIdle(); err != nil {
			return false, errors.Wrap(err, "device wait idle failed before pipeline rebuild")
		}
		if err := r.rebuildPipeline(); err != nil {
			return false, err
		}
	}

	slot := r.sync.Current()
	imageIndex, status, err := r.device.AcquireNextImage(r.swapchain.Handle, FenceTimeout, slot.ImageAvailable)
	if err != nil {
		err = errors.Wrap(err, "failed to acquire swapchain image")
		core.LogError(err.Error())
		return false, err
	}
	if status.NeedsRecreate() {
		core.LogDebug("Acquire reported %s, recreating swapchain.", status)
		if err := r.RecreateSwapchain(); err != nil {
			return false, err
		}
		// A suboptimal acquire signaled the semaphore and nothing will wait on it.
		if status == SwapchainSuboptimal {
			if err := r.device.WaitIdle(); err != nil {
				return false, errors.Wrap(err, "device wait idle failed")
			}
			if err := r.sync.ReplaceImageAvailable(); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if err := r.sync.WaitFenceImage(imageIndex); err != nil {
		core.LogError(err.Error())
		return false, err
	}

	ubo := NewUniformBufferObject(r.camera, r.swapchain.Extent)
	if err := r.uniforms[imageIndex].Write(ubo.Bytes()); err != nil {
		return false, errors.Wrapf(err, "failed to update uniform buffer %d", imageIndex)
	}

	if err := r.recorder.Begin(imageIndex, RenderPassBeginInfo{
		RenderPass:  r.renderPass,
		Framebuffer: r.framebuffers[imageIndex],
		Area:        r.swapchain.Scissor(),
		ClearColor:  r.config.ClearColor,
	}); err != nil {
		return false, err
	}
	if err := r.recorder.BindPipeline(imageIndex, r.pipeline.Pipeline); err != nil {
		return false, err
	}
	if err := r.recorder.SetViewport(imageIndex, r.swapchain.Viewport()); err != nil {
		return false, err
	}
	if err := r.recorder.SetScissor(imageIndex, r.swapchain.Scissor()); err != nil {
		return false, err
	}
	if err := r.recorder.BindDescriptorSets(imageIndex, []DescriptorSet{r.descriptorSets.Set(int(imageIndex))}); err != nil {
		return false, err
	}

	r.imageIndex = imageIndex
	r.frameStarted = true
	return true, nil
}

func (r *Renderer) RenderMesh(mesh *Mesh) error {
	if !r.frameStarted {
		return errors.Wrap(core.ErrInvalidCommandState, "no frame in progress")
	}
	return r.recorder.Draw(r.imageIndex, mesh.Record)
}

func (r *Renderer) DrawOverlay(overlay Overlay) error {
	if !r.frameStarted {
		return errors.Wrap(core.ErrInvalidCommandState, "no frame in progress")
	}
	return r.recorder.Record(r.imageIndex, overlay.Record)
}

// EndFrame finishes recording, submits and presents. A stale swapchain or a window
// whose size changed since the last build is recreated afterwards.
func (r *Renderer) EndFrame() error {
	if !r.frameStarted {
		return errors.Wrap(core.ErrInvalidCommandState, "no frame in progress")
	}
	r.frameStarted = false
	imageIndex := r.imageIndex

	if err := r.recorder.End(imageIndex); err != nil {
		return err
	}
	if err := r.sync.Submit(r.recorder.Buffer(imageIndex)); err != nil {
		core.LogError(err.Error())
		return err
	}
	r.recorder.MarkSubmitted(imageIndex)

	status, err := r.device.Present(r.swapchain.Handle, imageIndex, r.sync.Current().RenderFinished)
	if err != nil {
		err = errors.Wrap(err, "failed to present swapchain image")
		core.LogError(err.Error())
		return err
	}

	width, height := r.window.CurrentSize()
	resized := width != r.lastSize.Width || height != r.lastSize.Height
	if status.NeedsRecreate() || resized {
		core.LogDebug("Present reported %s (resized: %t), recreating swapchain.", status, resized)
		if err := r.RecreateSwapchain(); err != nil {
			return err
		}
	}

	r.sync.IncrementFrame()
	return nil
}

// DrawFrame renders the meshes followed by the overlays as one frame.
func (r *Renderer) DrawFrame(meshes []*Mesh, overlays ...Overlay) error {
	ok, err := r.BeginFrame()
	if err != nil || !ok {
		return err
	}
	for _, m := range meshes {
		if err := r.RenderMesh(m); err != nil {
			core.LogError(err.Error())
			return err
		}
	}
	for _, o := range overlays {
		if err := r.DrawOverlay(o); err != nil {
			core.LogError(err.Error())
			return err
		}
	}
	if err := r.EndFrame(); err != nil {
		core.LogError("EndFrame failed. Application shutting down...")
		return err
	}
	return nil
}

func (r *Renderer) MeshFactory() *MeshFactory {
	return r.meshes
}

func (r *Renderer) CurrentFrame() uint32 {
	return r.sync.CurrentFrame()
}

func (r *Renderer) Swapchain() *SwapchainState {
	return r.swapchain
}

func (r *Renderer) Pipeline() *GraphicsPipeline {
	return r.pipeline
}

func (r *Renderer) FramebufferCount() int {
	return len(r.framebuffers)
}

func (r *Renderer) CommandBufferCount() int {
	if r.recorder == nil {
		return 0
	}
	return r.recorder.Len()
}

// Shutdown waits for the device and destroys everything the renderer created.
// Meshes belong to the caller. Calling it twice is a no-op.
func (r *Renderer) Shutdown() error {
	if r.shutdown {
		return nil
	}
	r.shutdown = true
	err := r.device.WaitIdle()
	if err != nil {
		err = errors.Wrap(err, "device wait idle failed during shutdown")
		core.LogError(err.Error())
	}

	if r.recorder != nil {
		r.recorder.Free()
		r.recorder = nil
	}
	if r.descriptorSets != nil {
		r.descriptorSets.Release()
		r.descriptorSets = nil
	}
	r.descriptors.Destroy()
	DestroyBuffers(r.uniforms)
	r.uniforms = nil
	DestroyFramebuffers(r.framebuffers)
	r.framebuffers = nil
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.renderPass != nil {
		r.renderPass.Destroy()
		r.renderPass = nil
	}
	if r.layout != nil {
		r.layout.Destroy()
		r.layout = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	if r.sync != nil {
		r.sync.Destroy()
	}
	core.LogInfo("Renderer shut down.")
	return err
}
