// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/model"
)

// NewRenderPass describes the single subpass the renderer draws with: a
// cleared color attachment that ends up presentable and a cleared depth
// attachment that is discarded after the frame.
func NewRenderPass(dev vk.Device, colorFormat, depthFormat vk.Format) (*RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}

	// The attachment may still be read by the presentation engine when
	// the subpass starts, writing waits for the availability semaphore
	// through this dependency.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(dev, &createInfo, nil, &pass)); err != nil {
		return nil, errors.New("vk.CreateRenderPass(): " + err.Error())
	}
	return &RenderPass{device: dev, pass: pass}, nil
}

// RenderPass wraps the vulkan render pass with its clear values.
type RenderPass struct {
	device vk.Device
	pass   vk.RenderPass
}

// Get returns the vulkan render pass handle.
func (r *RenderPass) Get() vk.RenderPass {
	return r.pass
}

// Begin starts the pass on the given framebuffer, clearing both
// attachments.
func (r *RenderPass) Begin(cmd vk.CommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.005, 0.005, 0.005, 1}),
		vk.NewClearDepthStencil(1, 0),
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.pass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)
}

// End finishes the pass.
func (r *RenderPass) End(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// Release destroys the render pass.
func (r *RenderPass) Release() {
	vk.DestroyRenderPass(r.device, r.pass, nil)
}

// NewFramebuffer ties attachment views to the render pass for one
// swapchain image.
func NewFramebuffer(dev vk.Device, pass vk.RenderPass, attachments []vk.ImageView, extent vk.Extent2D) (vk.Framebuffer, error) {
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(dev, &createInfo, nil, &framebuffer)); err != nil {
		return vk.NullFramebuffer, errors.New("vk.CreateFramebuffer(): " + err.Error())
	}
	return framebuffer, nil
}

// NewPipeline builds the graphics pipeline over the render pass.
// Viewport and scissor stay dynamic so window resizes don't force a
// pipeline rebuild.
func NewPipeline(dev vk.Device, pass *RenderPass, shaders []*Shader, descriptorLayout vk.DescriptorSetLayout) (*Pipeline, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(shaders))
	for _, shader := range shaders {
		if shader.Stage() == 0 {
			return nil, fmt.Errorf("shader %s has no pipeline stage", shader.Name())
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shader.Stage(),
			Module: shader.Module(),
			PName:  safeString("main"),
		})
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(model.VertexBindingDescriptions())),
		PVertexBindingDescriptions:      model.VertexBindingDescriptions(),
		VertexAttributeDescriptionCount: uint32(len(model.VertexAttributeDescriptions())),
		PVertexAttributeDescriptions:    model.VertexAttributeDescriptions(),
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
		MaxDepthBounds:   1,
	}
	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descriptorLayout},
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(dev, &layoutInfo, nil, &layout)); err != nil {
		return nil, errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}

	cacheInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(dev, &cacheInfo, nil, &cache)); err != nil {
		vk.DestroyPipelineLayout(dev, layout, nil)
		return nil, errors.New("vk.CreatePipelineCache(): " + err.Error())
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              layout,
		RenderPass:          pass.Get(),
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := vk.Error(vk.CreateGraphicsPipelines(dev, cache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)); err != nil {
		vk.DestroyPipelineCache(dev, cache, nil)
		vk.DestroyPipelineLayout(dev, layout, nil)
		return nil, errors.New("vk.CreateGraphicsPipelines(): " + err.Error())
	}

	return &Pipeline{
		device:   dev,
		cache:    cache,
		layout:   layout,
		pipeline: pipelines[0],
	}, nil
}

// Pipeline owns the graphics pipeline with its layout and cache.
type Pipeline struct {
	device   vk.Device
	cache    vk.PipelineCache
	layout   vk.PipelineLayout
	pipeline vk.Pipeline
}

// Layout returns the pipeline layout for descriptor binding.
func (p *Pipeline) Layout() vk.PipelineLayout {
	return p.layout
}

// Bind makes the pipeline current on the command buffer.
func (p *Pipeline) Bind(cmd vk.CommandBuffer) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.pipeline)
}

// Release destroys the pipeline and everything backing it.
func (p *Pipeline) Release() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
	vk.DestroyPipelineCache(p.device, p.cache, nil)
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
}
