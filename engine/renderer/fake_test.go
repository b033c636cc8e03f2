package renderer

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeDevice is an in-memory Device. Fences only become signaled when the CPU
// waits on them or the device goes idle, which is enough to catch a frame that
// reuses an image without waiting for its previous submission.
type fakeDevice struct {
	mu      sync.Mutex
	nextID  int
	live    map[string]int
	created map[string]int

	support    SwapchainSupport
	swapchains []*fakeSwapchain
	olds       []Swapchain

	acquireStatus []SwapchainStatus
	presentStatus []SwapchainStatus
	acquireCount  int
	lastAcquired  uint32
	imageFences   map[uint32]*fakeFence

	fences           []*fakeFence
	submits          []fakeSubmit
	presents         []uint32
	pipelines        []PipelineCreateInfo
	passFormats      []Format
	descriptorWrites int
	waitIdle         int

	failDescriptorAlloc bool
	failSubmit          bool
	violations          []string
}

type fakeSubmit struct {
	cb     *fakeCommandBuffer
	wait   Semaphore
	signal Semaphore
	fence  *fakeFence
	image  uint32
}

func defaultSupport() SwapchainSupport {
	return SwapchainSupport{
		Capabilities: SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  Extent2D{Width: 800, Height: 600},
			MinImageExtent: Extent2D{Width: 1, Height: 1},
			MaxImageExtent: Extent2D{Width: 4096, Height: 4096},
		},
		Formats: []SurfaceFormat{
			{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
			{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSrgbNonlinear},
		},
		PresentModes: []PresentMode{PresentModeFifo, PresentModeImmediate},
	}
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		live:        make(map[string]int),
		created:     make(map[string]int),
		support:     defaultSupport(),
		imageFences: make(map[uint32]*fakeFence),
	}
}

func (d *fakeDevice) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) liveCount(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[kind]
}

func (d *fakeDevice) createdCount(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// liveObjects returns every kind with a non-zero live count.
func (d *fakeDevice) liveObjects() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for k, v := range d.live {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

func (d *fakeDevice) newObject(kind string) *fakeObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.live[kind]++
	d.created[kind]++
	return &fakeObject{dev: d, kind: kind, id: d.nextID}
}

type fakeObject struct {
	dev       *fakeDevice
	kind      string
	id        int
	destroyed bool
}

func (o *fakeObject) Native() interface{} { return o.id }

func (o *fakeObject) Destroy() {
	o.dev.mu.Lock()
	defer o.dev.mu.Unlock()
	if o.destroyed {
		o.dev.violate("%s %d destroyed twice", o.kind, o.id)
		return
	}
	o.destroyed = true
	o.dev.live[o.kind]--
}

type fakeImage struct{ id int }

func (i fakeImage) Native() interface{} { return i.id }

type fakeSet struct{ id int }

func (s fakeSet) Native() interface{} { return s.id }

type fakeSwapchain struct {
	*fakeObject
	info   SwapchainCreateInfo
	images []Image
	next   uint32
}

type fakeFence struct {
	*fakeObject
	signaled bool
	waits    int
}

func (f *fakeFence) Wait(timeoutNs uint64) error {
	if f.destroyed {
		return errors.New("wait on destroyed fence")
	}
	f.signaled = true
	f.waits++
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) Signaled() bool { return f.signaled }

type fakeBuffer struct {
	*fakeObject
	size  uint64
	usage BufferUsage
	data  []byte
}

func (b *fakeBuffer) Size() uint64 { return b.size }

func (b *fakeBuffer) Write(data []byte) error {
	if uint64(len(data)) > b.size {
		return errors.Errorf("write of %d bytes into buffer of %d", len(data), b.size)
	}
	copy(b.data, data)
	return nil
}

type fakeDescriptorPool struct {
	*fakeObject
	maxSets   uint32
	allocated uint32
}

func (p *fakeDescriptorPool) Allocate(layouts []DescriptorSetLayout) ([]DescriptorSet, error) {
	d := p.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDescriptorAlloc {
		return nil, errors.New("out of pool memory")
	}
	if p.destroyed {
		d.violate("allocation from destroyed pool %d", p.id)
		return nil, errors.New("pool destroyed")
	}
	n := uint32(len(layouts))
	if p.allocated+n > p.maxSets {
		d.violate("pool %d over-allocated: %d + %d > %d", p.id, p.allocated, n, p.maxSets)
		return nil, errors.New("out of pool memory")
	}
	p.allocated += n
	sets := make([]DescriptorSet, n)
	for i := range sets {
		d.nextID++
		sets[i] = fakeSet{id: d.nextID}
	}
	return sets, nil
}

type fakeCommandBuffer struct {
	*fakeObject
	recording bool
	ops       []string
}

func (c *fakeCommandBuffer) op(name string) {
	c.ops = append(c.ops, name)
}

func (c *fakeCommandBuffer) Begin() error {
	if c.recording {
		return errors.New("begin while recording")
	}
	c.recording = true
	c.ops = []string{"begin"}
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.recording {
		return errors.New("end while not recording")
	}
	c.recording = false
	c.op("end")
	return nil
}

func (c *fakeCommandBuffer) BeginRenderPass(info RenderPassBeginInfo) { c.op("beginRenderPass") }
func (c *fakeCommandBuffer) EndRenderPass()                           { c.op("endRenderPass") }
func (c *fakeCommandBuffer) BindPipeline(pipeline Pipeline)           { c.op("bindPipeline") }
func (c *fakeCommandBuffer) SetViewport(viewport Viewport)            { c.op("setViewport") }
func (c *fakeCommandBuffer) SetScissor(scissor Rect2D)                { c.op("setScissor") }
func (c *fakeCommandBuffer) BindDescriptorSets(pipeline Pipeline, sets []DescriptorSet) {
	c.op("bindDescriptorSets")
}
func (c *fakeCommandBuffer) BindVertexBuffers(buffers []Buffer, offsets []uint64) {
	c.op("bindVertexBuffers")
}
func (c *fakeCommandBuffer) BindIndexBuffer(buffer Buffer, offset uint64, indexType IndexType) {
	c.op("bindIndexBuffer")
}
func (c *fakeCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.op("draw")
}
func (c *fakeCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.op("drawIndexed")
}

func (d *fakeDevice) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waitIdle++
	for _, f := range d.fences {
		if !f.destroyed {
			f.signaled = true
		}
	}
	return nil
}

func (d *fakeDevice) SwapchainSupport() (SwapchainSupport, error) {
	return d.support, nil
}

func (d *fakeDevice) CreateSwapchain(info SwapchainCreateInfo, old Swapchain) (Swapchain, error) {
	sc := &fakeSwapchain{fakeObject: d.newObject("swapchain"), info: info}
	for i := uint32(0); i < info.ImageCount; i++ {
		sc.images = append(sc.images, fakeImage{id: int(i)})
	}
	d.mu.Lock()
	d.swapchains = append(d.swapchains, sc)
	d.olds = append(d.olds, old)
	d.imageFences = make(map[uint32]*fakeFence)
	d.mu.Unlock()
	return sc, nil
}

func (d *fakeDevice) SwapchainImages(swapchain Swapchain) ([]Image, error) {
	return swapchain.(*fakeSwapchain).images, nil
}

func (d *fakeDevice) CreateImageView(image Image, format Format) (ImageView, error) {
	return d.newObject("imageView"), nil
}

func (d *fakeDevice) CreateRenderPass(format Format) (RenderPass, error) {
	d.mu.Lock()
	d.passFormats = append(d.passFormats, format)
	d.mu.Unlock()
	return d.newObject("renderPass"), nil
}

func (d *fakeDevice) CreateFramebuffer(pass RenderPass, view ImageView, extent Extent2D) (Framebuffer, error) {
	return d.newObject("framebuffer"), nil
}

func (d *fakeDevice) CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error) {
	return d.newObject("descriptorSetLayout"), nil
}

func (d *fakeDevice) CreateDescriptorPool(maxSets, descriptorCount uint32) (DescriptorPool, error) {
	return &fakeDescriptorPool{fakeObject: d.newObject("descriptorPool"), maxSets: maxSets}, nil
}

func (d *fakeDevice) WriteUniformDescriptor(set DescriptorSet, binding uint32, buffer Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.descriptorWrites++
}

func (d *fakeDevice) CreatePipeline(info PipelineCreateInfo) (Pipeline, error) {
	d.mu.Lock()
	d.pipelines = append(d.pipelines, info)
	d.mu.Unlock()
	return d.newObject("pipeline"), nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	f := &fakeFence{fakeObject: d.newObject("fence"), signaled: signaled}
	d.mu.Lock()
	d.fences = append(d.fences, f)
	d.mu.Unlock()
	return f, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	return d.newObject("semaphore"), nil
}

func (d *fakeDevice) AllocateCommandBuffers(count uint32) ([]CommandBuffer, error) {
	out := make([]CommandBuffer, count)
	for i := range out {
		out[i] = &fakeCommandBuffer{fakeObject: d.newObject("commandBuffer")}
	}
	return out, nil
}

func (d *fakeDevice) CreateBuffer(size uint64, usage BufferUsage) (Buffer, error) {
	return &fakeBuffer{fakeObject: d.newObject("buffer"), size: size, usage: usage, data: make([]byte, size)}, nil
}

func (d *fakeDevice) UploadBuffer(data []byte, usage BufferUsage) (Buffer, error) {
	b := &fakeBuffer{fakeObject: d.newObject("buffer"), size: uint64(len(data)), usage: usage, data: make([]byte, len(data))}
	copy(b.data, data)
	return b, nil
}

func popStatus(queue *[]SwapchainStatus) SwapchainStatus {
	if len(*queue) == 0 {
		return SwapchainOptimal
	}
	s := (*queue)[0]
	*queue = (*queue)[1:]
	return s
}

func (d *fakeDevice) AcquireNextImage(swapchain Swapchain, timeoutNs uint64, signal Semaphore) (uint32, SwapchainStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc := swapchain.(*fakeSwapchain)
	if sc.destroyed {
		return 0, SwapchainOptimal, errors.New("acquire on destroyed swapchain")
	}
	if signal.(*fakeObject).destroyed {
		d.violate("acquire signals destroyed semaphore")
	}
	d.acquireCount++
	status := popStatus(&d.acquireStatus)
	if status == SwapchainOutOfDate {
		return 0, status, nil
	}
	idx := sc.next % uint32(len(sc.images))
	sc.next++
	d.lastAcquired = idx
	return idx, status, nil
}

func (d *fakeDevice) Submit(cb CommandBuffer, wait, signal Semaphore, fence Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSubmit {
		return errors.New("device lost")
	}
	f := fence.(*fakeFence)
	c := cb.(*fakeCommandBuffer)
	if f.signaled {
		d.violate("submit with a signaled fence")
	}
	if c.recording || len(c.ops) == 0 || c.ops[len(c.ops)-1] != "end" {
		d.violate("submit of a command buffer that was not ended")
	}
	if prev := d.imageFences[d.lastAcquired]; prev != nil && prev != f && !prev.signaled {
		d.violate("image %d submitted while its previous frame is in flight", d.lastAcquired)
	}
	d.imageFences[d.lastAcquired] = f
	d.submits = append(d.submits, fakeSubmit{cb: c, wait: wait, signal: signal, fence: f, image: d.lastAcquired})
	return nil
}

func (d *fakeDevice) Present(swapchain Swapchain, imageIndex uint32, wait Semaphore) (SwapchainStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if swapchain.(*fakeSwapchain).destroyed {
		return SwapchainOptimal, errors.New("present on destroyed swapchain")
	}
	d.presents = append(d.presents, imageIndex)
	return popStatus(&d.presentStatus), nil
}

type fakeWindow struct {
	width, height uint32
	hidden        bool
}

func (w *fakeWindow) CurrentSize() (uint32, uint32) { return w.width, w.height }
func (w *fakeWindow) IsVisible() bool               { return !w.hidden }

func spirvWords(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func writeTestShaders(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, stage := range []string{ShaderStageNameVertex, ShaderStageNameFragment} {
		require.NoError(t, os.WriteFile(ShaderPath(dir, "shader", stage), spirvWords(0x07230203, 0x00010000), 0o644))
	}
	return dir
}

func testConfig(assetDir string) Config {
	cfg := DefaultConfig()
	cfg.AssetDir = assetDir
	cfg.ClearColor = [4]float32{0, 0, 0, 1}
	return cfg
}

func newTestRenderer(t *testing.T) (*Renderer, *fakeDevice, *fakeWindow) {
	t.Helper()
	d := newFakeDevice()
	w := &fakeWindow{width: 800, height: 600}
	r, err := New(d, w, testConfig(writeTestShaders(t)))
	require.NoError(t, err)
	return r, d, w
}

// drawFrame runs one full frame and reports whether it was drawn.
func drawFrame(t *testing.T, r *Renderer) bool {
	t.Helper()
	ok, err := r.BeginFrame()
	require.NoError(t, err)
	if !ok {
		return false
	}
	require.NoError(t, r.EndFrame())
	return true
}

func removeTestShaders(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.spv"))
	require.NoError(t, err)
	for _, m := range matches {
		require.NoError(t, os.Remove(m))
	}
}
