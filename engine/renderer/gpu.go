package renderer

import "math"

// Format mirrors the VkFormat values the renderer cares about.
type Format int32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatR8G8B8A8Srgb    Format = 43
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatR32G32Sfloat    Format = 103
	FormatR32G32B32Sfloat Format = 106
)

type ColorSpace int32

const (
	ColorSpaceSrgbNonlinear ColorSpace = 0
)

type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

type IndexType int32

const (
	IndexTypeUint16 IndexType = 0
	IndexTypeUint32 IndexType = 1
)

type DescriptorType int32

const (
	DescriptorTypeUniformBuffer DescriptorType = 6
)

type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x10
)

type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x1
	BufferUsageTransferDst BufferUsage = 0x2
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
)

// SwapchainStatus is the recoverable outcome of acquire and present.
type SwapchainStatus int

const (
	SwapchainOptimal SwapchainStatus = iota
	SwapchainSuboptimal
	SwapchainOutOfDate
)

func (s SwapchainStatus) String() string {
	switch s {
	case SwapchainOptimal:
		return "optimal"
	case SwapchainSuboptimal:
		return "suboptimal"
	case SwapchainOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

// NeedsRecreate reports whether the swapchain must be rebuilt.
func (s SwapchainStatus) NeedsRecreate() bool {
	return s != SwapchainOptimal
}

// UndefinedExtent is the surface capability marker for "extent follows the swapchain".
const UndefinedExtent uint32 = math.MaxUint32

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
}

type SwapchainSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

type SwapchainCreateInfo struct {
	ImageCount  uint32
	Format      SurfaceFormat
	PresentMode PresentMode
	Extent      Extent2D
}

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

type VertexBinding struct {
	Binding uint32
	Stride  uint32
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   Format
	Offset   uint32
}

type PipelineCreateInfo struct {
	RenderPass   RenderPass
	Layouts      []DescriptorSetLayout
	VertexCode   []uint32
	FragmentCode []uint32
	Binding      VertexBinding
	Attributes   []VertexAttribute
}

type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Area        Rect2D
	ClearColor  [4]float32
}

// Object is implemented by every GPU-owned wrapper.
type Object interface {
	// Native returns the underlying API handle.
	Native() interface{}
	Destroy()
}

// Image is owned by the swapchain and never destroyed explicitly.
type Image interface {
	Native() interface{}
}

// DescriptorSet is freed with the pool it was allocated from.
type DescriptorSet interface {
	Native() interface{}
}

type Semaphore interface{ Object }
type Swapchain interface{ Object }
type ImageView interface{ Object }
type RenderPass interface{ Object }
type Framebuffer interface{ Object }
type DescriptorSetLayout interface{ Object }
type Pipeline interface{ Object }

type Fence interface {
	Object
	// Wait blocks until the fence is signaled or timeoutNs elapses.
	Wait(timeoutNs uint64) error
	Reset() error
	Signaled() bool
}

type DescriptorPool interface {
	Object
	Allocate(layouts []DescriptorSetLayout) ([]DescriptorSet, error)
}

type Buffer interface {
	Object
	Size() uint64
	// Write copies data into host visible memory.
	Write(data []byte) error
}

type CommandBuffer interface {
	Object
	Begin() error
	End() error
	BeginRenderPass(info RenderPassBeginInfo)
	EndRenderPass()
	BindPipeline(pipeline Pipeline)
	SetViewport(viewport Viewport)
	SetScissor(scissor Rect2D)
	BindDescriptorSets(pipeline Pipeline, sets []DescriptorSet)
	BindVertexBuffers(buffers []Buffer, offsets []uint64)
	BindIndexBuffer(buffer Buffer, offset uint64, indexType IndexType)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// Device is the graphics API surface the frame lifecycle is written against.
type Device interface {
	WaitIdle() error
	SwapchainSupport() (SwapchainSupport, error)
	CreateSwapchain(info SwapchainCreateInfo, old Swapchain) (Swapchain, error)
	SwapchainImages(swapchain Swapchain) ([]Image, error)
	CreateImageView(image Image, format Format) (ImageView, error)
	CreateRenderPass(format Format) (RenderPass, error)
	CreateFramebuffer(pass RenderPass, view ImageView, extent Extent2D) (Framebuffer, error)
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	CreateDescriptorPool(maxSets, descriptorCount uint32) (DescriptorPool, error)
	WriteUniformDescriptor(set DescriptorSet, binding uint32, buffer Buffer)
	CreatePipeline(info PipelineCreateInfo) (Pipeline, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	AllocateCommandBuffers(count uint32) ([]CommandBuffer, error)
	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	// UploadBuffer creates a device local buffer initialised with data.
	UploadBuffer(data []byte, usage BufferUsage) (Buffer, error)
	AcquireNextImage(swapchain Swapchain, timeoutNs uint64, signal Semaphore) (uint32, SwapchainStatus, error)
	Submit(cb CommandBuffer, wait, signal Semaphore, fence Fence) error
	Present(swapchain Swapchain, imageIndex uint32, wait Semaphore) (SwapchainStatus, error)
}
