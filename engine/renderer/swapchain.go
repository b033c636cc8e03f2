package renderer

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/wind/engine/core"
	"github.com/spaghettifunk/wind/engine/math"
)

type SwapchainOptions struct {
	PreferredFormat      SurfaceFormat
	PreferredPresentMode PresentMode
}

// SwapchainState is the presentable image chain together with its views.
type SwapchainState struct {
	Handle      Swapchain
	Format      SurfaceFormat
	PresentMode PresentMode
	Extent      Extent2D
	Images      []Image
	Views       []ImageView
}

// ChooseSurfaceFormat returns the preferred pair when available, the first entry otherwise.
func ChooseSurfaceFormat(available []SurfaceFormat, preferred SurfaceFormat) (SurfaceFormat, error) {
	if len(available) == 0 {
		return SurfaceFormat{}, core.ErrNoSurfaceFormat
	}
	for _, f := range available {
		if f == preferred {
			return f, nil
		}
	}
	return available[0], nil
}

// ChoosePresentMode returns the preferred mode when available, the first entry otherwise.
func ChoosePresentMode(available []PresentMode, preferred PresentMode) (PresentMode, error) {
	if len(available) == 0 {
		return 0, core.ErrNoPresentMode
	}
	for _, m := range available {
		if m == preferred {
			return m, nil
		}
	}
	return available[0], nil
}

// ChooseExtent uses the current extent verbatim unless the surface reports the
// undefined marker, in which case the window size is clamped to the allowed range.
func ChooseExtent(caps SurfaceCapabilities, width, height uint32) Extent2D {
	if caps.CurrentExtent.Width != UndefinedExtent {
		return caps.CurrentExtent
	}
	return Extent2D{
		Width:  math.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image above the minimum. A maximum of zero means unbounded.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// CreateSwapchain builds a new swapchain and its image views. The previous state, if any,
// is handed to the driver for reuse but is left for the caller to destroy.
func CreateSwapchain(device Device, window WindowSizeProvider, opts SwapchainOptions, previous *SwapchainState) (*SwapchainState, error) {
	support, err := device.SwapchainSupport()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query swapchain support")
	}

	format, err := ChooseSurfaceFormat(support.Formats, opts.PreferredFormat)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	presentMode, err := ChoosePresentMode(support.PresentModes, opts.PreferredPresentMode)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	width, height := window.CurrentSize()
	extent := ChooseExtent(support.Capabilities, width, height)
	imageCount := ChooseImageCount(support.Capabilities)

	var old Swapchain
	if previous != nil {
		old = previous.Handle
	}

	handle, err := device.CreateSwapchain(SwapchainCreateInfo{
		ImageCount:  imageCount,
		Format:      format,
		PresentMode: presentMode,
		Extent:      extent,
	}, old)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create swapchain")
	}

	state := &SwapchainState{
		Handle:      handle,
		Format:      format,
		PresentMode: presentMode,
		Extent:      extent,
	}

	images, err := device.SwapchainImages(handle)
	if err != nil {
		state.Destroy()
		return nil, errors.Wrap(err, "failed to get swapchain images")
	}
	state.Images = images

	state.Views = make([]ImageView, 0, len(images))
	for i, image := range images {
		view, err := device.CreateImageView(image, format.Format)
		if err != nil {
			state.Destroy()
			return nil, errors.Wrapf(err, "failed to create view for swapchain image %d", i)
		}
		state.Views = append(state.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.", extent.Width, extent.Height, len(images), presentMode)
	return state, nil
}

func (s *SwapchainState) ImageCount() int {
	return len(s.Images)
}

// Viewport covers the whole extent.
func (s *SwapchainState) Viewport() Viewport {
	return Viewport{
		Width:    float32(s.Extent.Width),
		Height:   float32(s.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
}

func (s *SwapchainState) Scissor() Rect2D {
	return Rect2D{Extent: s.Extent}
}

// Destroy releases the views and the swapchain handle. Images belong to the driver.
func (s *SwapchainState) Destroy() {
	for _, v := range s.Views {
		v.Destroy()
	}
	s.Views = nil
	s.Images = nil
	if s.Handle != nil {
		s.Handle.Destroy()
		s.Handle = nil
	}
}
