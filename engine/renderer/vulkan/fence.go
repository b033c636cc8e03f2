package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanFence struct {
	tracked
	Handle vk.Fence
	// IsSignaled caches the last observed state so waits on a known signaled
	// fence skip the driver.
	IsSignaled bool
}

func (b *Backend) CreateFence(signaled bool) (renderer.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if err := resultError(vk.CreateFence(b.logical(), &fenceCreateInfo, nil, &handle), "vkCreateFence"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{
		tracked:    b.track("fence"),
		Handle:     handle,
		IsSignaled: signaled,
	}, nil
}

func (f *VulkanFence) Native() interface{} { return f.Handle }

func (f *VulkanFence) Destroy() {
	if !f.release() {
		return
	}
	vk.DestroyFence(f.backend.logical(), f.Handle, nil)
	f.Handle = nil
	f.IsSignaled = false
}

func (f *VulkanFence) Wait(timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	res := vk.WaitForFences(f.backend.logical(), 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Errorf("fence wait timed out after %dns", timeoutNs)
	default:
		err := resultError(res, "vkWaitForFences")
		core.LogError(err.Error())
		return err
	}
}

func (f *VulkanFence) Reset() error {
	if err := resultError(vk.ResetFences(f.backend.logical(), 1, []vk.Fence{f.Handle}), "vkResetFences"); err != nil {
		core.LogError(err.Error())
		return err
	}
	f.IsSignaled = false
	return nil
}

func (f *VulkanFence) Signaled() bool {
	if !f.IsSignaled && vk.GetFenceStatus(f.backend.logical(), f.Handle) == vk.Success {
		f.IsSignaled = true
	}
	return f.IsSignaled
}

type VulkanSemaphore struct {
	tracked
	Handle vk.Semaphore
}

func (b *Backend) CreateSemaphore() (renderer.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if err := resultError(vk.CreateSemaphore(b.logical(), &semaphoreCreateInfo, nil, &handle), "vkCreateSemaphore"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSemaphore{tracked: b.track("semaphore"), Handle: handle}, nil
}

func (s *VulkanSemaphore) Native() interface{} { return s.Handle }

func (s *VulkanSemaphore) Destroy() {
	if !s.release() {
		return
	}
	vk.DestroySemaphore(s.backend.logical(), s.Handle, nil)
	s.Handle = nil
}

// Submit queues cb on the graphics queue. It waits on wait at the colour
// attachment output stage, signals signal and then fence on completion.
func (b *Backend) Submit(cb renderer.CommandBuffer, wait, signal renderer.Semaphore, fence renderer.Fence) error {
	vf := fence.(*VulkanFence)
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait.(*VulkanSemaphore).Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.(*VulkanCommandBuffer).Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.(*VulkanSemaphore).Handle},
	}

	err := b.locks.SafeQueueCall(b.device.GraphicsQueueIndex, func() error {
		return resultError(vk.QueueSubmit(b.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vf.Handle), "vkQueueSubmit")
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
