package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanRenderPass struct {
	tracked
	Handle vk.RenderPass
	Format vk.Format
}

// CreateRenderPass creates a single subpass pass with one colour attachment that
// is cleared on load, stored, and left ready for presentation.
func (b *Backend) CreateRenderPass(format renderer.Format) (renderer.RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         vk.Format(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	// The first colour write waits for the presentation engine to release the image.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := resultError(vk.CreateRenderPass(b.logical(), &renderpassCreateInfo, nil, &handle), "vkCreateRenderPass"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("Render pass created.")
	return &VulkanRenderPass{
		tracked: b.track("render pass"),
		Handle:  handle,
		Format:  vk.Format(format),
	}, nil
}

func (rp *VulkanRenderPass) Native() interface{} { return rp.Handle }

func (rp *VulkanRenderPass) Destroy() {
	if !rp.release() {
		return
	}
	vk.DestroyRenderPass(rp.backend.logical(), rp.Handle, nil)
	rp.Handle = nil
}
