package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsTheFrameBundle(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	sc := r.Swapchain()
	require.NotNil(t, sc)
	assert.Equal(t, 3, sc.ImageCount())
	assert.Equal(t, FormatR8G8B8A8Unorm, sc.Format.Format)
	assert.Equal(t, PresentModeImmediate, sc.PresentMode)
	assert.Equal(t, Extent2D{Width: 800, Height: 600}, sc.Extent)

	assert.Equal(t, 3, d.liveCount("imageView"))
	assert.Equal(t, 3, d.liveCount("framebuffer"))
	assert.Equal(t, 3, d.liveCount("commandBuffer"))
	assert.Equal(t, 3, d.liveCount("buffer"))
	assert.Equal(t, 1, d.liveCount("pipeline"))
	assert.Equal(t, 1, d.liveCount("renderPass"))
	assert.Equal(t, 1, d.liveCount("descriptorPool"))
	assert.Equal(t, 2, d.liveCount("fence"))
	assert.Equal(t, 4, d.liveCount("semaphore"))
	assert.Equal(t, 3, d.descriptorWrites)
	assert.Equal(t, 3, r.FramebufferCount())
	assert.Equal(t, 3, r.CommandBufferCount())
	assert.Equal(t, uint32(0), r.CurrentFrame())
	assert.Empty(t, d.violations)
}

func TestNewRejectsBadInput(t *testing.T) {
	d := newFakeDevice()
	w := &fakeWindow{width: 800, height: 600}

	cfg := testConfig(writeTestShaders(t))
	cfg.FramesInFlight = 0
	_, err := New(d, w, cfg)
	assert.Error(t, err)

	_, err = New(d, w, testConfig(t.TempDir()))
	assert.Error(t, err)
	assert.Empty(t, d.liveObjects())
}

func TestFramesCycleThroughSlotsAndImages(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	var frames []uint32
	for i := 0; i < 10; i++ {
		frames = append(frames, r.CurrentFrame())
		require.True(t, drawFrame(t, r))
	}

	assert.Equal(t, []uint32{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}, frames)
	assert.Equal(t, []uint32{0, 1, 2, 0, 1, 2, 0, 1, 2, 0}, d.presents)
	require.Len(t, d.submits, 10)
	for i, s := range d.submits {
		slot := r.sync.Slot(uint32(i % 2))
		assert.Same(t, slot.InFlight, Fence(s.fence), "submit %d", i)
		assert.Equal(t, slot.ImageAvailable, s.wait, "submit %d", i)
		assert.Equal(t, slot.RenderFinished, s.signal, "submit %d", i)
	}
	assert.Equal(t, 1, len(d.swapchains))
	assert.Empty(t, d.violations)
}

func TestImageFenceTracksLastSlot(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	// Four frames on three images: image 0 is first used by slot 0, then by slot 1.
	for i := 0; i < 4; i++ {
		require.True(t, drawFrame(t, r))
	}
	assert.Same(t, r.sync.Slot(1).InFlight, r.sync.ImageInFlight(0))
	assert.Same(t, r.sync.Slot(1).InFlight, r.sync.ImageInFlight(1))
	assert.Same(t, r.sync.Slot(0).InFlight, r.sync.ImageInFlight(2))
	assert.Empty(t, d.violations)
}

func TestCommandBufferContents(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	mesh, err := r.MeshFactory().CreateMesh([]Vertex{
		{Pos: [2]float32{-0.5, -0.5}, Color: [3]float32{1, 0, 0}},
		{Pos: [2]float32{0.5, -0.5}, Color: [3]float32{0, 1, 0}},
		{Pos: [2]float32{0.5, 0.5}, Color: [3]float32{0, 0, 1}},
		{Pos: [2]float32{-0.5, 0.5}, Color: [3]float32{1, 1, 1}},
	}, []uint16{0, 1, 2, 2, 3, 0})
	require.NoError(t, err)
	defer mesh.Destroy()

	overlay := &recordingOverlay{}
	require.NoError(t, r.DrawFrame([]*Mesh{mesh}, overlay))

	require.Len(t, d.submits, 1)
	assert.Equal(t, []string{
		"begin",
		"beginRenderPass",
		"bindPipeline",
		"setViewport",
		"setScissor",
		"bindDescriptorSets",
		"bindVertexBuffers",
		"bindIndexBuffer",
		"drawIndexed",
		"overlay",
		"endRenderPass",
		"end",
	}, d.submits[0].cb.ops)
	assert.Equal(t, 1, overlay.calls)
}

type recordingOverlay struct {
	calls int
}

func (o *recordingOverlay) Record(cb CommandBuffer) error {
	o.calls++
	cb.(*fakeCommandBuffer).op("overlay")
	return nil
}

func TestUniformBufferFollowsCamera(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	r.UpdateCamera(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	ok, err := r.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)

	want := NewUniformBufferObject(Camera{
		Position:  mgl32.Vec3{1, 2, 3},
		Direction: mgl32.Vec3{0, 0, -1},
		Up:        mgl32.Vec3{0, 1, 0},
	}, Extent2D{Width: 800, Height: 600})
	got := r.uniforms[d.lastAcquired].(*fakeBuffer).data
	assert.Equal(t, want.Bytes(), got)
	require.NoError(t, r.EndFrame())
}

func TestRenderCallsOutsideAFrame(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	mesh, err := r.MeshFactory().CreateMesh([]Vertex{{}, {}, {}}, nil)
	require.NoError(t, err)
	defer mesh.Destroy()

	assert.ErrorIs(t, r.RenderMesh(mesh), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.DrawOverlay(&recordingOverlay{}), core.ErrInvalidCommandState)
	assert.ErrorIs(t, r.EndFrame(), core.ErrInvalidCommandState)

	ok, err := r.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = r.BeginFrame()
	assert.ErrorIs(t, err, core.ErrInvalidCommandState)
	require.NoError(t, r.RenderMesh(mesh))
	require.NoError(t, r.EndFrame())
}

func TestOutOfDateAcquireRecreatesAndSkips(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	first := d.swapchains[0]

	d.acquireStatus = []SwapchainStatus{SwapchainOutOfDate}
	ok, err := r.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, d.swapchains, 2)
	assert.Equal(t, Swapchain(first), d.olds[1])
	assert.True(t, first.destroyed)
	assert.Empty(t, d.submits)
	assert.Empty(t, d.presents)
	assert.Equal(t, uint32(0), r.CurrentFrame())

	require.True(t, drawFrame(t, r))
	assert.Len(t, d.swapchains, 2)
	assert.Empty(t, d.violations)
}

func TestSuboptimalAcquireReplacesSemaphore(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	old := r.sync.Current().ImageAvailable

	d.acquireStatus = []SwapchainStatus{SwapchainSuboptimal}
	ok, err := r.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, d.swapchains, 2)
	assert.NotEqual(t, old, r.sync.Current().ImageAvailable)
	assert.Equal(t, 5, d.createdCount("semaphore"))
	assert.Equal(t, 4, d.liveCount("semaphore"))
	assert.Empty(t, d.submits)

	require.True(t, drawFrame(t, r))
	assert.Empty(t, d.violations)
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	r, d, w := newTestRenderer(t)

	w.width, w.height = 0, 0
	ok, err := r.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, d.acquireCount)

	require.NoError(t, r.RecreateSwapchain())
	assert.Len(t, d.swapchains, 1)

	w.width, w.height = 800, 600
	w.hidden = true
	ok, err = r.BeginFrame()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, d.acquireCount)

	// Restoring the window rebuilds what was deferred before drawing.
	w.hidden = false
	require.True(t, drawFrame(t, r))
	assert.Len(t, d.swapchains, 2)
	assert.Empty(t, d.violations)
}

func TestMinimizedDuringPresentDefersRecreation(t *testing.T) {
	r, d, w := newTestRenderer(t)

	ok, err := r.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	w.width, w.height = 0, 0
	require.NoError(t, r.EndFrame())
	assert.Len(t, d.swapchains, 1)

	w.width, w.height = 640, 480
	d.support.Capabilities.CurrentExtent = Extent2D{Width: 640, Height: 480}
	require.True(t, drawFrame(t, r))
	assert.Len(t, d.swapchains, 2)
	assert.Equal(t, Extent2D{Width: 640, Height: 480}, r.Swapchain().Extent)
}

func TestPresentStatusTriggersRecreation(t *testing.T) {
	for _, status := range []SwapchainStatus{SwapchainSuboptimal, SwapchainOutOfDate} {
		t.Run(status.String(), func(t *testing.T) {
			r, d, _ := newTestRenderer(t)
			d.presentStatus = []SwapchainStatus{status}

			require.True(t, drawFrame(t, r))
			assert.Len(t, d.swapchains, 2)
			assert.Equal(t, uint32(1), r.CurrentFrame())
			assert.Equal(t, 1, d.createdCount("pipeline"))

			require.True(t, drawFrame(t, r))
			assert.Empty(t, d.violations)
		})
	}
}

func TestResizeRecreatesWithoutPipeline(t *testing.T) {
	r, d, w := newTestRenderer(t)

	ok, err := r.BeginFrame()
	require.NoError(t, err)
	require.True(t, ok)
	w.width, w.height = 1024, 768
	d.support.Capabilities.CurrentExtent = Extent2D{Width: 1024, Height: 768}
	require.NoError(t, r.EndFrame())

	assert.Len(t, d.swapchains, 2)
	assert.Equal(t, Extent2D{Width: 1024, Height: 768}, r.Swapchain().Extent)
	assert.Equal(t, 1, d.createdCount("pipeline"))
	assert.Equal(t, 2, d.createdCount("renderPass"))
	assert.Equal(t, 1, d.liveCount("renderPass"))

	require.True(t, drawFrame(t, r))
	assert.Len(t, d.swapchains, 2)
}

func TestFormatChangeRebuildsPipeline(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	d.support.Formats = []SurfaceFormat{{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear}}
	require.NoError(t, r.RecreateSwapchain())

	assert.Equal(t, FormatB8G8R8A8Unorm, r.Swapchain().Format.Format)
	assert.Equal(t, FormatB8G8R8A8Unorm, r.Pipeline().Format)
	assert.Equal(t, []Format{FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm}, d.passFormats)
	assert.Equal(t, 2, d.createdCount("pipeline"))
	assert.Equal(t, 1, d.liveCount("pipeline"))
}

func TestRecreationInvariants(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	require.True(t, drawFrame(t, r))
	require.True(t, drawFrame(t, r))

	d.support.Capabilities.MinImageCount = 3
	d.support.Capabilities.MaxImageCount = 0
	require.NoError(t, r.RecreateSwapchain())
	require.NoError(t, r.RecreateSwapchain())

	assert.Equal(t, 4, r.Swapchain().ImageCount())
	assert.Equal(t, 4, d.liveCount("imageView"))
	assert.Equal(t, 4, d.liveCount("framebuffer"))
	assert.Equal(t, 4, d.liveCount("commandBuffer"))
	assert.Equal(t, 4, d.liveCount("buffer"))
	assert.Equal(t, 1, d.liveCount("swapchain"))
	assert.Equal(t, 1, d.liveCount("renderPass"))
	assert.Equal(t, 1, d.liveCount("pipeline"))
	assert.Equal(t, r.FramebufferCount(), r.CommandBufferCount())
	for i := uint32(0); i < 4; i++ {
		assert.Nil(t, r.sync.ImageInFlight(i))
	}
	// Slots survive recreation.
	assert.Equal(t, 2, d.createdCount("fence"))

	for i := 0; i < 8; i++ {
		require.True(t, drawFrame(t, r))
	}
	assert.Equal(t, []uint32{0, 1, 0, 1, 2, 3, 0, 1, 2, 3}, d.presents)
	assert.Empty(t, d.violations)
}

func TestRepeatedRecreationRecyclesDescriptorPools(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	for i := 0; i < 30; i++ {
		require.NoError(t, r.RecreateSwapchain())
	}
	assert.Greater(t, d.createdCount("descriptorPool"), 1)
	assert.LessOrEqual(t, d.liveCount("descriptorPool"), 2)
	assert.LessOrEqual(t, r.descriptors.LivePools(), 2)
	assert.Empty(t, d.violations)
}

func TestFailedRecreationIsRetriedByNextFrame(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	require.True(t, drawFrame(t, r))

	d.support.Capabilities.MinImageCount = 3
	d.support.Capabilities.MaxImageCount = 0
	d.failDescriptorAlloc = true
	require.Error(t, r.RecreateSwapchain())
	assert.True(t, r.pendingRecreate)

	// Still failing: the frame reports the error instead of using a half built bundle.
	assert.NotPanics(t, func() {
		ok, err := r.BeginFrame()
		assert.Error(t, err)
		assert.False(t, ok)
	})
	assert.True(t, r.pendingRecreate)

	d.failDescriptorAlloc = false
	require.True(t, drawFrame(t, r))
	assert.False(t, r.pendingRecreate)
	assert.Equal(t, 4, r.Swapchain().ImageCount())
	assert.Equal(t, 4, r.FramebufferCount())
	assert.Equal(t, 4, r.CommandBufferCount())
	assert.Len(t, r.uniforms, 4)
	assert.Len(t, r.descriptorSets.Sets(), 4)
	assert.Equal(t, 1, d.liveCount("swapchain"))
	assert.Empty(t, d.violations)
}

func TestReloadShadersRebuildsPipelineAtNextFrame(t *testing.T) {
	r, d, _ := newTestRenderer(t)

	r.ReloadShaders()
	assert.Equal(t, 1, d.createdCount("pipeline"))
	require.True(t, drawFrame(t, r))
	assert.Equal(t, 2, d.createdCount("pipeline"))
	assert.Equal(t, 1, d.liveCount("pipeline"))

	require.True(t, drawFrame(t, r))
	assert.Equal(t, 2, d.createdCount("pipeline"))
}

func TestReloadShadersKeepsOldCodeOnFailure(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	removeTestShaders(t, r.config.AssetDir)

	r.ReloadShaders()
	require.True(t, drawFrame(t, r))
	assert.Equal(t, 2, d.createdCount("pipeline"))
	assert.Equal(t, r.shaders.Vertex, d.pipelines[1].VertexCode)
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, d, _ := newTestRenderer(t)
	for i := 0; i < 3; i++ {
		require.True(t, drawFrame(t, r))
	}
	require.NoError(t, r.RecreateSwapchain())

	require.NoError(t, r.Shutdown())
	assert.Empty(t, d.liveObjects())
	assert.Empty(t, d.violations)

	require.NoError(t, r.Shutdown())
	_, err := r.BeginFrame()
	assert.ErrorIs(t, err, core.ErrRendererShutdown)
	assert.ErrorIs(t, r.RecreateSwapchain(), core.ErrRendererShutdown)
}
