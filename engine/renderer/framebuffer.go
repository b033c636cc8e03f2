package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
)

// CreateFramebuffers creates one framebuffer per swapchain view.
func CreateFramebuffers(device Device, pass RenderPass, swapchain *SwapchainState) ([]Framebuffer, error) {
	framebuffers := make([]Framebuffer, 0, len(swapchain.Views))
	for i, view := range swapchain.Views {
		fb, err := device.CreateFramebuffer(pass, view, swapchain.Extent)
		if err != nil {
			DestroyFramebuffers(framebuffers)
			err = errors.Wrapf(err, "failed to create framebuffer %d", i)
			core.LogError(err.Error())
			return nil, err
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}

func DestroyFramebuffers(framebuffers []Framebuffer) {
	for _, fb := range framebuffers {
		fb.Destroy()
	}
}
