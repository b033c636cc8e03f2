package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanCommandBuffer struct {
	tracked
	Handle vk.CommandBuffer
	pool   vk.CommandPool
}

// AllocateCommandBuffers allocates count primary buffers from the graphics pool.
func (b *Backend) AllocateCommandBuffers(count uint32) ([]renderer.CommandBuffer, error) {
	handles, err := b.allocateCommandBuffers(count)
	if err != nil {
		return nil, err
	}
	out := make([]renderer.CommandBuffer, count)
	for i, h := range handles {
		out[i] = &VulkanCommandBuffer{
			tracked: b.track("command buffer"),
			Handle:  h,
			pool:    b.device.GraphicsCommandPool,
		}
	}
	return out, nil
}

func (b *Backend) allocateCommandBuffers(count uint32) ([]vk.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.device.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	handles := make([]vk.CommandBuffer, count)
	err := b.locks.SafeCall(CommandPoolManagement, func() error {
		return resultError(vk.AllocateCommandBuffers(b.logical(), &allocateInfo, handles), "vkAllocateCommandBuffers")
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return handles, nil
}

func (c *VulkanCommandBuffer) Native() interface{} { return c.Handle }

// Destroy returns the buffer to its pool.
func (c *VulkanCommandBuffer) Destroy() {
	if !c.release() {
		return
	}
	b := c.backend
	b.locks.Locked(CommandPoolManagement, func() {
		vk.FreeCommandBuffers(b.logical(), c.pool, 1, []vk.CommandBuffer{c.Handle})
	})
	c.Handle = nil
}

func (c *VulkanCommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return resultError(vk.BeginCommandBuffer(c.Handle, &beginInfo), "vkBeginCommandBuffer")
}

func (c *VulkanCommandBuffer) End() error {
	return resultError(vk.EndCommandBuffer(c.Handle), "vkEndCommandBuffer")
}

func (c *VulkanCommandBuffer) BeginRenderPass(info renderer.RenderPassBeginInfo) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(info.ClearColor[:])
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  info.RenderPass.(*VulkanRenderPass).Handle,
		Framebuffer: info.Framebuffer.(*VulkanFramebuffer).Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: info.Area.Offset.X, Y: info.Area.Offset.Y},
			Extent: vk.Extent2D{Width: info.Area.Extent.Width, Height: info.Area.Extent.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.Handle, &beginInfo, vk.SubpassContentsInline)
}

func (c *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.Handle)
}

func (c *VulkanCommandBuffer) BindPipeline(pipeline renderer.Pipeline) {
	vk.CmdBindPipeline(c.Handle, vk.PipelineBindPointGraphics, pipeline.(*VulkanPipeline).Handle)
}

func (c *VulkanCommandBuffer) SetViewport(viewport renderer.Viewport) {
	vk.CmdSetViewport(c.Handle, 0, 1, []vk.Viewport{{
		X:        viewport.X,
		Y:        viewport.Y,
		Width:    viewport.Width,
		Height:   viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

func (c *VulkanCommandBuffer) SetScissor(scissor renderer.Rect2D) {
	vk.CmdSetScissor(c.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: scissor.Offset.X, Y: scissor.Offset.Y},
		Extent: vk.Extent2D{Width: scissor.Extent.Width, Height: scissor.Extent.Height},
	}})
}

func (c *VulkanCommandBuffer) BindDescriptorSets(pipeline renderer.Pipeline, sets []renderer.DescriptorSet) {
	handles := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		handles[i] = s.(*VulkanDescriptorSet).Handle
	}
	vk.CmdBindDescriptorSets(c.Handle, vk.PipelineBindPointGraphics, pipeline.(*VulkanPipeline).PipelineLayout,
		0, uint32(len(handles)), handles, 0, nil)
}

func (c *VulkanCommandBuffer) BindVertexBuffers(buffers []renderer.Buffer, offsets []uint64) {
	handles := make([]vk.Buffer, len(buffers))
	deviceOffsets := make([]vk.DeviceSize, len(buffers))
	for i, buf := range buffers {
		handles[i] = buf.(*VulkanBuffer).Handle
		if i < len(offsets) {
			deviceOffsets[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(c.Handle, 0, uint32(len(handles)), handles, deviceOffsets)
}

func (c *VulkanCommandBuffer) BindIndexBuffer(buffer renderer.Buffer, offset uint64, indexType renderer.IndexType) {
	vk.CmdBindIndexBuffer(c.Handle, buffer.(*VulkanBuffer).Handle, vk.DeviceSize(offset), vk.IndexType(indexType))
}

func (c *VulkanCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(c.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (c *VulkanCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(c.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// AllocateAndBeginSingleUse allocates a primary buffer and begins recording it
// for one submission.
func (b *Backend) AllocateAndBeginSingleUse() (vk.CommandBuffer, error) {
	handles, err := b.allocateCommandBuffers(1)
	if err != nil {
		return nil, err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := resultError(vk.BeginCommandBuffer(handles[0], &beginInfo), "vkBeginCommandBuffer"); err != nil {
		b.freeCommandBuffer(handles[0])
		return nil, err
	}
	return handles[0], nil
}

// EndSingleUse ends cb, submits it to the graphics queue, waits for the queue to
// drain and frees cb.
func (b *Backend) EndSingleUse(cb vk.CommandBuffer) error {
	defer b.freeCommandBuffer(cb)

	if err := resultError(vk.EndCommandBuffer(cb), "vkEndCommandBuffer"); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	err := b.locks.SafeQueueCall(b.device.GraphicsQueueIndex, func() error {
		if err := resultError(vk.QueueSubmit(b.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, nil), "vkQueueSubmit"); err != nil {
			return err
		}
		return resultError(vk.QueueWaitIdle(b.device.GraphicsQueue), "vkQueueWaitIdle")
	})
	if err != nil {
		err = errors.Wrap(err, "single use command buffer failed")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (b *Backend) freeCommandBuffer(cb vk.CommandBuffer) {
	b.locks.Locked(CommandPoolManagement, func() {
		vk.FreeCommandBuffers(b.logical(), b.device.GraphicsCommandPool, 1, []vk.CommandBuffer{cb})
	})
}
