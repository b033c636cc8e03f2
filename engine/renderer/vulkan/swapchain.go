package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/renderer"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanSwapchain struct {
	tracked
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
}

func (s *VulkanSwapchain) Native() interface{} { return s.Handle }

// Destroy releases the swapchain. Its images go with it.
func (s *VulkanSwapchain) Destroy() {
	if !s.release() {
		return
	}
	vk.DestroySwapchain(s.backend.logical(), s.Handle, nil)
	s.Handle = nil
}

type VulkanImage struct {
	Handle vk.Image
}

func (i *VulkanImage) Native() interface{} { return i.Handle }

type VulkanImageView struct {
	tracked
	Handle vk.ImageView
}

func (v *VulkanImageView) Native() interface{} { return v.Handle }

func (v *VulkanImageView) Destroy() {
	if !v.release() {
		return
	}
	vk.DestroyImageView(v.backend.logical(), v.Handle, nil)
	v.Handle = nil
}

func (b *Backend) SwapchainSupport() (renderer.SwapchainSupport, error) {
	info, err := DeviceQuerySwapchainSupport(b.device.PhysicalDevice, b.surface)
	if err != nil {
		return renderer.SwapchainSupport{}, err
	}
	caps := info.Capabilities
	support := renderer.SwapchainSupport{
		Capabilities: renderer.SurfaceCapabilities{
			MinImageCount:  caps.MinImageCount,
			MaxImageCount:  caps.MaxImageCount,
			CurrentExtent:  renderer.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
			MinImageExtent: renderer.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
			MaxImageExtent: renderer.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		},
		Formats:      make([]renderer.SurfaceFormat, len(info.Formats)),
		PresentModes: make([]renderer.PresentMode, len(info.PresentModes)),
	}
	for i, f := range info.Formats {
		support.Formats[i] = renderer.SurfaceFormat{
			Format:     renderer.Format(f.Format),
			ColorSpace: renderer.ColorSpace(f.ColorSpace),
		}
	}
	for i, m := range info.PresentModes {
		support.PresentModes[i] = renderer.PresentMode(m)
	}
	return support, nil
}

// CreateSwapchain builds a swapchain for the surface. old, when given, is handed
// to the driver so in-flight presentation can retire gracefully; the caller
// still destroys it.
func (b *Backend) CreateSwapchain(info renderer.SwapchainCreateInfo, old renderer.Swapchain) (renderer.Swapchain, error) {
	support, err := DeviceQuerySwapchainSupport(b.device.PhysicalDevice, b.surface)
	if err != nil {
		return nil, err
	}

	extent := vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height}
	format := vk.SurfaceFormat{
		Format:     vk.Format(info.Format.Format),
		ColorSpace: vk.ColorSpace(info.Format.ColorSpace),
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          b.surface,
		MinImageCount:    info.ImageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
	}

	if b.device.GraphicsQueueIndex != b.device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			b.device.GraphicsQueueIndex,
			b.device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.(*VulkanSwapchain).Handle
	}

	var handle vk.Swapchain
	if err := resultError(vk.CreateSwapchain(b.logical(), &swapchainCreateInfo, nil, &handle), "vkCreateSwapchainKHR"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	core.LogInfo("Swapchain created successfully.")
	return &VulkanSwapchain{
		tracked:     b.track("swapchain"),
		Handle:      handle,
		ImageFormat: format,
		Extent:      extent,
	}, nil
}

func (b *Backend) SwapchainImages(swapchain renderer.Swapchain) ([]renderer.Image, error) {
	sc := swapchain.(*VulkanSwapchain)
	var count uint32
	if err := resultError(vk.GetSwapchainImages(b.logical(), sc.Handle, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	handles := make([]vk.Image, count)
	if err := resultError(vk.GetSwapchainImages(b.logical(), sc.Handle, &count, handles), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	images := make([]renderer.Image, count)
	for i, h := range handles {
		images[i] = &VulkanImage{Handle: h}
	}
	return images, nil
}

// CreateImageView creates a 2D colour view with identity swizzle over one mip
// level and one layer.
func (b *Backend) CreateImageView(image renderer.Image, format renderer.Format) (renderer.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.(*VulkanImage).Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := resultError(vk.CreateImageView(b.logical(), &viewInfo, nil, &view), "vkCreateImageView"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanImageView{tracked: b.track("image view"), Handle: view}, nil
}

func (b *Backend) AcquireNextImage(swapchain renderer.Swapchain, timeoutNs uint64, signal renderer.Semaphore) (uint32, renderer.SwapchainStatus, error) {
	var index uint32
	res := vk.AcquireNextImage(
		b.logical(),
		swapchain.(*VulkanSwapchain).Handle,
		timeoutNs,
		signal.(*VulkanSemaphore).Handle,
		nil,
		&index)
	status, err := swapchainStatus(res, "vkAcquireNextImageKHR")
	if err != nil {
		core.LogError(err.Error())
		return 0, status, err
	}
	return index, status, nil
}

// Present queues imageIndex for presentation once wait is signaled.
func (b *Backend) Present(swapchain renderer.Swapchain, imageIndex uint32, wait renderer.Semaphore) (renderer.SwapchainStatus, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*VulkanSemaphore).Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.(*VulkanSwapchain).Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var res vk.Result
	b.locks.LockedQueue(b.device.PresentQueueIndex, func() {
		res = vk.QueuePresent(b.device.PresentQueue, &presentInfo)
	})
	status, err := swapchainStatus(res, "vkQueuePresentKHR")
	if err != nil {
		err = errors.Wrapf(err, "failed to present image %d", imageIndex)
		core.LogError(err.Error())
		return status, err
	}
	return status, nil
}
