// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"math"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/gfx"
)

// NewSwapchain builds a swapchain against the given surface, sized as
// close to width and height as the surface allows.
func NewSwapchain(ctx *Context, surface vk.Surface, width, height uint32) (*Swapchain, error) {
	s := &Swapchain{
		ctx:     ctx,
		surface: surface,
	}
	if err := s.create(vk.NullSwapchain, width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// Swapchain owns the presentable image sequence and hands its images out
// for rendering. When the window system invalidates it, Acquire and
// Present report gfx.ErrSurfaceStale and the owner recreates it.
type Swapchain struct {
	ctx     *Context
	surface vk.Surface

	swapchain vk.Swapchain
	images    []vk.Image
	views     []vk.ImageView
	depths    []*DepthImage

	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
}

func (s *Swapchain) create(old vk.Swapchain, width, height uint32) error {
	var capabilities vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(s.ctx.physicalDevice, s.surface, &capabilities)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceCapabilities(): " + err.Error())
	}
	capabilities.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(s.ctx.physicalDevice, s.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(s.ctx.physicalDevice, s.surface, &formatCount, formats)

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(s.ctx.physicalDevice, s.surface, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(s.ctx.physicalDevice, s.surface, &modeCount, modes)

	s.format = chooseSurfaceFormat(formats)
	s.presentMode = choosePresentMode(modes)
	s.extent = chooseExtent(capabilities, width, height)

	// One more image than the minimum keeps the device from stalling on
	// the presentation engine. Zero MaxImageCount means unbounded.
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Images rendered on one queue family and presented on another need
	// concurrent sharing, exclusive is faster otherwise.
	graphicsFamily, presentFamily := s.ctx.QueueFamilies()
	if graphicsFamily != presentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{graphicsFamily, presentFamily}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(s.ctx.device, &createInfo, nil, &swapchain)); err != nil {
		return errors.New("vk.CreateSwapchain(): " + err.Error())
	}
	s.swapchain = swapchain

	var swapchainImageCount uint32
	if err := vk.Error(vk.GetSwapchainImages(s.ctx.device, s.swapchain, &swapchainImageCount, nil)); err != nil {
		return errors.New("vk.GetSwapchainImages(): " + err.Error())
	}
	s.images = make([]vk.Image, swapchainImageCount)
	if err := vk.Error(vk.GetSwapchainImages(s.ctx.device, s.swapchain, &swapchainImageCount, s.images)); err != nil {
		return errors.New("vk.GetSwapchainImages(): " + err.Error())
	}

	s.views = make([]vk.ImageView, len(s.images))
	for idx, image := range s.images {
		view, err := NewImageView(s.ctx.device, image, s.format.Format, vk.ImageAspectColorBit)
		if err != nil {
			return err
		}
		s.views[idx] = view
	}

	s.depths = make([]*DepthImage, len(s.images))
	for idx := range s.depths {
		depth, err := NewDepthImage(s.ctx, s.extent)
		if err != nil {
			return err
		}
		s.depths[idx] = depth
	}
	return nil
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for i := range formats {
		formats[i].Deref()
	}

	// A single undefined format means the surface takes anything.
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{
			Format:     vk.FormatB8g8r8a8Unorm,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	preferred := []vk.PresentMode{
		vk.PresentModeMailbox,
		vk.PresentModeFifo,
		vk.PresentModeImmediate,
	}
	for _, want := range preferred {
		for _, mode := range modes {
			if mode == want {
				return mode
			}
		}
	}
	return modes[0]
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	// The surface dictates the extent unless it reports the magic
	// unbounded value, then the request is clamped to its limits.
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	extent := vk.Extent2D{Width: width, Height: height}
	if extent.Width < capabilities.MinImageExtent.Width {
		extent.Width = capabilities.MinImageExtent.Width
	}
	if extent.Width > capabilities.MaxImageExtent.Width {
		extent.Width = capabilities.MaxImageExtent.Width
	}
	if extent.Height < capabilities.MinImageExtent.Height {
		extent.Height = capabilities.MinImageExtent.Height
	}
	if extent.Height > capabilities.MaxImageExtent.Height {
		extent.Height = capabilities.MaxImageExtent.Height
	}
	return extent
}

// Acquire asks the presentation engine for the next image to render
// into. imageAvailable signals once the image is actually ready, the
// index comes back immediately.
func (s *Swapchain) Acquire(imageAvailable gfx.Semaphore) (int, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(s.ctx.device, s.swapchain, math.MaxUint64,
		imageAvailable.(*Semaphore).Get(), vk.NullFence, &imageIndex)

	if result == vk.ErrorOutOfDate {
		return 0, gfx.ErrSurfaceStale
	}
	// A suboptimal match still presents correctly, keep the frame going
	// and let the present side decide about recreation.
	if result != vk.Suboptimal {
		if err := vk.Error(result); err != nil {
			return 0, errors.New("vk.AcquireNextImage(): " + err.Error())
		}
	}
	return int(imageIndex), nil
}

// Present queues the image for display once wait signals.
func (s *Swapchain) Present(wait gfx.Semaphore, imageIndex int) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).Get()},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.swapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}

	result := vk.QueuePresent(s.ctx.PresentQueue(), &presentInfo)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return gfx.ErrSurfaceStale
	}
	if err := vk.Error(result); err != nil {
		return errors.New("vk.QueuePresent(): " + err.Error())
	}
	return nil
}

// Recreate rebuilds the image sequence for the current surface state.
// The device must be idle. The old swapchain is handed to the new one
// for resource reuse and destroyed after.
func (s *Swapchain) Recreate(width, height uint32) error {
	old := s.swapchain
	for _, view := range s.views {
		vk.DestroyImageView(s.ctx.device, view, nil)
	}
	s.views = nil
	for _, depth := range s.depths {
		depth.Release()
	}
	s.depths = nil

	if err := s.create(old, width, height); err != nil {
		return err
	}
	vk.DestroySwapchain(s.ctx.device, old, nil)
	return nil
}

// ImageCount returns how many images the presentation engine deals.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// Views returns one image view per swapchain image.
func (s *Swapchain) Views() []vk.ImageView {
	return s.views
}

// DepthView returns the depth attachment view paired with the image at
// idx.
func (s *Swapchain) DepthView(idx int) vk.ImageView {
	return s.depths[idx].View()
}

// Format returns the color format the images were created with.
func (s *Swapchain) Format() vk.Format {
	return s.format.Format
}

// DepthFormat returns the format the depth attachments were created
// with.
func (s *Swapchain) DepthFormat() vk.Format {
	return s.depths[0].Format()
}

// Extent returns the current image extent.
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// Release destroys the image views, the depth attachments and the
// swapchain itself. Images belong to the presentation engine and go
// down with it.
func (s *Swapchain) Release() {
	for _, view := range s.views {
		vk.DestroyImageView(s.ctx.device, view, nil)
	}
	for _, depth := range s.depths {
		depth.Release()
	}
	vk.DestroySwapchain(s.ctx.device, s.swapchain, nil)
}
