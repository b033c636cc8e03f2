package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanFramebuffer struct {
	tracked
	Handle     vk.Framebuffer
	Renderpass *VulkanRenderPass
	Attachment vk.ImageView
}

func (b *Backend) CreateFramebuffer(pass renderer.RenderPass, view renderer.ImageView, extent renderer.Extent2D) (renderer.Framebuffer, error) {
	renderpass := pass.(*VulkanRenderPass)
	attachment := view.(*VulkanImageView).Handle

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{attachment},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := resultError(vk.CreateFramebuffer(b.logical(), &framebufferCreateInfo, nil, &handle), "vkCreateFramebuffer"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFramebuffer{
		tracked:    b.track("framebuffer"),
		Handle:     handle,
		Renderpass: renderpass,
		Attachment: attachment,
	}, nil
}

func (fb *VulkanFramebuffer) Native() interface{} { return fb.Handle }

func (fb *VulkanFramebuffer) Destroy() {
	if !fb.release() {
		return
	}
	vk.DestroyFramebuffer(fb.backend.logical(), fb.Handle, nil)
	fb.Handle = nil
	fb.Attachment = nil
	fb.Renderpass = nil
}
