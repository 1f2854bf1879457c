// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"
	"image"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/core"
)

// NewImage creates a new vulkan image primitive with memory allocated,
// bound and ready for use.
func NewImage(ctx *Context, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlagBits, props vk.MemoryPropertyFlagBits) (*Image, error) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var img vk.Image
	if err := vk.Error(vk.CreateImage(ctx.device, &createInfo, nil, &img)); err != nil {
		return nil, fmt.Errorf("vk.CreateImage(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(ctx.device, img, &req)
	req.Deref()

	memory, err := ctx.allocator.Malloc(req, props)
	if err != nil {
		vk.DestroyImage(ctx.device, img, nil)
		return nil, err
	}
	vk.BindImageMemory(ctx.device, img, memory.Get(), 0)

	return &Image{
		device: ctx.device,
		image:  img,
		memory: memory,
		format: format,
	}, nil
}

// Image implements and abstracts vulkan image primitive.
type Image struct {
	device vk.Device
	image  vk.Image
	memory Memory
	format vk.Format
}

// Get returns the vulkan image handle.
func (i *Image) Get() vk.Image {
	return i.image
}

// Mem returns the underlying memory of the Image.
func (i *Image) Mem() *Memory {
	return &i.memory
}

// Format returns the format the image was created with.
func (i *Image) Format() vk.Format {
	return i.format
}

// Transition moves the image between layouts with the right barrier for
// the known layout pairs.
func (i *Image) Transition(ctx *Context, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return errors.New("unsupported image layout transition")
	}

	return ctx.oneShot(func(cmd vk.CommandBuffer) {
		vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
			0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

// CopyFromBuffer fills the image from buffer contents. The image must be
// in the transfer destination layout.
func (i *Image) CopyFromBuffer(ctx *Context, buffer *Buffer, width, height uint32) error {
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}
	return ctx.oneShot(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBufferToImage(cmd, buffer.Get(), i.image,
			vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	})
}

// Release destroys the image and frees its memory.
func (i *Image) Release() {
	vk.DestroyImage(i.device, i.image, nil)
	i.memory.Release()
}

// NewImageView wraps an image into a view for the given aspect.
func NewImageView(dev vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits) (vk.ImageView, error) {
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(dev, &createInfo, nil, &view)); err != nil {
		return vk.NullImageView, fmt.Errorf("vk.CreateImageView(): %s", err.Error())
	}
	return view, nil
}

// FindSupportedFormat returns the first candidate format the device
// supports with the given tiling and features.
func FindSupportedFormat(device vk.PhysicalDevice, candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlagBits) (vk.Format, error) {
	for _, format := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device, format, &props)
		props.Deref()

		switch tiling {
		case vk.ImageTilingLinear:
			if props.LinearTilingFeatures&vk.FormatFeatureFlags(features) == vk.FormatFeatureFlags(features) {
				return format, nil
			}
		case vk.ImageTilingOptimal:
			if props.OptimalTilingFeatures&vk.FormatFeatureFlags(features) == vk.FormatFeatureFlags(features) {
				return format, nil
			}
		}
	}
	return vk.FormatUndefined, errors.New("no supported format among candidates")
}

// FindDepthFormat picks the best depth attachment format the device has.
func FindDepthFormat(device vk.PhysicalDevice) (vk.Format, error) {
	return FindSupportedFormat(device,
		[]vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint},
		vk.ImageTilingOptimal, vk.FormatFeatureDepthStencilAttachmentBit)
}

// NewDepthImage builds the depth attachment for the given extent. It is
// recreated together with the swapchain.
func NewDepthImage(ctx *Context, extent vk.Extent2D) (*DepthImage, error) {
	format, err := FindDepthFormat(ctx.physicalDevice)
	if err != nil {
		return nil, err
	}

	img, err := NewImage(ctx, extent.Width, extent.Height, format,
		vk.ImageTilingOptimal, vk.ImageUsageDepthStencilAttachmentBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}

	view, err := NewImageView(ctx.device, img.Get(), format, vk.ImageAspectDepthBit)
	if err != nil {
		img.Release()
		return nil, err
	}

	return &DepthImage{
		device: ctx.device,
		image:  img,
		view:   view,
		format: format,
	}, nil
}

// DepthImage bundles the depth attachment image with its view.
type DepthImage struct {
	device vk.Device
	image  *Image
	view   vk.ImageView
	format vk.Format
}

// View returns the attachment view.
func (d *DepthImage) View() vk.ImageView {
	return d.view
}

// Format returns the depth format in use.
func (d *DepthImage) Format() vk.Format {
	return d.format
}

// Release destroys the view and the image behind it.
func (d *DepthImage) Release() {
	vk.DestroyImageView(d.device, d.view, nil)
	d.image.Release()
}

// NewTexture uploads img into a device local sampled image through a
// staging buffer.
func NewTexture(ctx *Context, src image.Image) (*Texture, error) {
	bounds := src.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())

	pixels, err := core.GetPixels(src, 4*bounds.Dx())
	if err != nil {
		return nil, err
	}

	staging, err := NewBuffer(ctx, uint(len(pixels)), vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer staging.Release()
	if err := staging.Update(pixels); err != nil {
		return nil, err
	}

	img, err := NewImage(ctx, width, height, vk.FormatR8g8b8a8Unorm, vk.ImageTilingOptimal,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	if err := img.Transition(ctx, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		img.Release()
		return nil, err
	}
	if err := img.CopyFromBuffer(ctx, staging, width, height); err != nil {
		img.Release()
		return nil, err
	}
	if err := img.Transition(ctx, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		img.Release()
		return nil, err
	}

	view, err := NewImageView(ctx.device, img.Get(), vk.FormatR8g8b8a8Unorm, vk.ImageAspectColorBit)
	if err != nil {
		img.Release()
		return nil, err
	}

	sampler, err := newSampler(ctx.device)
	if err != nil {
		vk.DestroyImageView(ctx.device, view, nil)
		img.Release()
		return nil, err
	}

	return &Texture{
		device:  ctx.device,
		image:   img,
		view:    view,
		sampler: sampler,
	}, nil
}

// Texture is a sampled image ready to be bound into a descriptor set.
type Texture struct {
	device  vk.Device
	image   *Image
	view    vk.ImageView
	sampler vk.Sampler
}

// View returns the sampled image view.
func (t *Texture) View() vk.ImageView {
	return t.view
}

// Sampler returns the sampler bound with the texture.
func (t *Texture) Sampler() vk.Sampler {
	return t.sampler
}

// Release destroys the sampler, view and image.
func (t *Texture) Release() {
	vk.DestroySampler(t.device, t.sampler, nil)
	vk.DestroyImageView(t.device, t.view, nil)
	t.image.Release()
}

func newSampler(dev vk.Device) (vk.Sampler, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    16,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		CompareOp:        vk.CompareOpAlways,
		MipmapMode:       vk.SamplerMipmapModeLinear,
	}
	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(dev, &createInfo, nil, &sampler)); err != nil {
		return vk.NullSampler, fmt.Errorf("vk.CreateSampler(): %s", err.Error())
	}
	return sampler, nil
}
