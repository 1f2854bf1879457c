// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/core"
	"github.com/berylllium/lise/gfx"
	"github.com/berylllium/lise/model"
)

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer
func NewVulkanRenderer(instance core.Instance, cfg core.RendererConfiguration) (*VulkanRenderer, error) {
	if instance.Surface() == vk.NullSurface {
		return nil, errors.New("instance has no surface to render to")
	}
	if len(instance.AvailableDevices()) == 0 {
		return nil, errors.New("no vulkan capable devices available")
	}
	return &VulkanRenderer{
		configuration:  cfg,
		instance:       instance,
		surface:        instance.Surface(),
		surfaceWidth:   cfg.ScreenWidth,
		surfaceHeight:  cfg.ScreenHeight,
		mesh:           model.Cube(),
		modelTransform: glm.Ident4(),
	}, nil
}

// VulkanRenderer is a Vulkan API renderer. It owns the device context
// and the full presentation chain, and doubles as the surface its frame
// pipeline acquires from, so a stale swapchain is rebuilt together with
// everything sized to it.
type VulkanRenderer struct {
	configuration core.RendererConfiguration

	instance core.Instance
	surface  vk.Surface

	// Guards the fields the windowing goroutine writes concurrently
	// with the draw loop.
	mu             sync.Mutex
	surfaceWidth   uint32
	surfaceHeight  uint32
	modelTransform glm.Mat4

	pendingTexture image.Image
	mesh           model.Mesh

	ctx          *Context
	swapchain    *Swapchain
	renderPass   *RenderPass
	shaders      []*Shader
	descriptors  *Descriptors
	pipeline     *Pipeline
	framebuffers []vk.Framebuffer
	uniforms     []*Buffer
	texture      *Texture
	gpuMesh      *Mesh
	frames       *core.FramePipeline
}

// DeviceIsSuitable implements interface
func (v *VulkanRenderer) DeviceIsSuitable(device vk.PhysicalDevice) (bool, string) {
	return DeviceIsSuitable(device, v.surface, v.configuration.DeviceExtensions)
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	var physicalDevice vk.PhysicalDevice
	for _, device := range v.instance.AvailableDevices() {
		if ok, _ := v.DeviceIsSuitable(device); ok {
			physicalDevice = device
			break
		}
	}
	if physicalDevice == nil {
		return errors.New("no suitable device found")
	}

	ctx, err := NewContext(physicalDevice, v.surface, v.configuration.DeviceExtensions)
	if err != nil {
		return err
	}
	v.ctx = ctx

	width, height := v.surfaceSize()
	if v.swapchain, err = NewSwapchain(ctx, v.surface, width, height); err != nil {
		return err
	}
	if v.renderPass, err = NewRenderPass(ctx.Device(), v.swapchain.Format(), v.swapchain.DepthFormat()); err != nil {
		return err
	}

	if v.configuration.ShaderArchive != "" {
		v.shaders, err = LoadShaderArchive(ctx.Device(), v.configuration.ShaderArchive)
	} else {
		v.shaders, err = LoadShaderDirectory(ctx.Device(), v.configuration.ShaderDirectory)
	}
	if err != nil {
		return err
	}
	if len(v.shaders) == 0 {
		return errors.New("no shaders found to build the pipeline with")
	}

	texture := v.pendingTexture
	if texture == nil {
		texture = whitePixel()
	}
	if v.texture, err = NewTexture(ctx, texture); err != nil {
		return err
	}

	if err := v.createImageResources(); err != nil {
		return err
	}

	if v.pipeline, err = NewPipeline(ctx.Device(), v.renderPass, v.shaders, v.descriptors.Layout()); err != nil {
		return err
	}

	if v.gpuMesh, err = NewMesh(ctx, v.mesh); err != nil {
		return err
	}

	frames, err := core.NewFramePipeline(ctx, v, v.configuration.FramesInFlight)
	if err != nil {
		return err
	}
	v.frames = frames
	return nil
}

// createImageResources builds everything sized to the swapchain image
// count: framebuffers, uniform buffers and the descriptor sets that
// point at them.
func (v *VulkanRenderer) createImageResources() error {
	extent := v.swapchain.Extent()
	for idx, view := range v.swapchain.Views() {
		framebuffer, err := NewFramebuffer(v.ctx.Device(), v.renderPass.Get(),
			[]vk.ImageView{view, v.swapchain.DepthView(idx)}, extent)
		if err != nil {
			return err
		}
		v.framebuffers = append(v.framebuffers, framebuffer)
	}

	descriptors, err := NewDescriptors(v.ctx.Device(), v.swapchain.ImageCount())
	if err != nil {
		return err
	}
	v.descriptors = descriptors

	for idx := 0; idx < v.swapchain.ImageCount(); idx++ {
		uniform, err := NewBuffer(v.ctx, uint(unsafe.Sizeof(model.Uniform{})),
			vk.BufferUsageUniformBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return err
		}
		v.uniforms = append(v.uniforms, uniform)
		v.descriptors.Bind(idx, uniform, v.texture)
	}
	return nil
}

func (v *VulkanRenderer) releaseImageResources() {
	for _, uniform := range v.uniforms {
		uniform.Release()
	}
	v.uniforms = nil
	if v.descriptors != nil {
		v.descriptors.Release()
		v.descriptors = nil
	}
	for _, framebuffer := range v.framebuffers {
		vk.DestroyFramebuffer(v.ctx.Device(), framebuffer, nil)
	}
	v.framebuffers = nil
}

// Draw implements interface
func (v *VulkanRenderer) Draw() error {
	_, err := v.frames.Frame(v.recordFrame)
	return err
}

func (v *VulkanRenderer) recordFrame(commands gfx.CommandBuffer, imageIndex int) error {
	if err := v.updateUniform(imageIndex); err != nil {
		return err
	}

	cmd := commands.(*CommandBuffer).Get()
	extent := v.swapchain.Extent()

	v.renderPass.Begin(cmd, v.framebuffers[imageIndex], extent)
	v.pipeline.Bind(cmd)

	viewport := vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{Extent: extent}})

	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipeline.Layout(),
		0, 1, []vk.DescriptorSet{v.descriptors.Set(imageIndex)}, 0, nil)
	v.gpuMesh.Draw(cmd)

	v.renderPass.End(cmd)
	return nil
}

// updateUniform refreshes the uniform buffer belonging to imageIndex.
// The image fence wait has already proven the device is done reading it.
func (v *VulkanRenderer) updateUniform(imageIndex int) error {
	extent := v.swapchain.Extent()
	ubo := model.Uniform{
		Model: v.Model(),
		View:  glm.LookAt(2, 2, 2, 0, 0, 0, 0, 0, 1),
		Projection: glm.Perspective(glm.DegToRad(45),
			float32(extent.Width)/float32(extent.Height), 0.1, 10),
	}
	// Flip from OpenGl to Vulkan projection
	ubo.Projection[5] *= -1

	return v.uniforms[imageIndex].Update(uniformBytes(&ubo))
}

// SetModel places the rendered mesh in the world. Safe to call while
// the draw loop runs.
func (v *VulkanRenderer) SetModel(transform glm.Mat4) {
	v.mu.Lock()
	v.modelTransform = transform
	v.mu.Unlock()
}

// Model returns the current mesh transform.
func (v *VulkanRenderer) Model() glm.Mat4 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modelTransform
}

// SetTexture sets the image sampled over the mesh. Only effective
// before Initialise.
func (v *VulkanRenderer) SetTexture(img image.Image) error {
	if v.ctx != nil {
		return errors.New("texture can only be set before initialisation")
	}
	v.pendingTexture = img
	return nil
}

// SetMesh replaces the default geometry. Only effective before
// Initialise.
func (v *VulkanRenderer) SetMesh(m model.Mesh) error {
	if v.ctx != nil {
		return errors.New("mesh can only be set before initialisation")
	}
	v.mesh = m
	return nil
}

// Resize implements interface
func (v *VulkanRenderer) Resize(width, height uint32) {
	v.mu.Lock()
	v.surfaceWidth = width
	v.surfaceHeight = height
	v.mu.Unlock()

	if v.frames != nil {
		v.frames.Invalidate()
	}
}

func (v *VulkanRenderer) surfaceSize() (uint32, uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surfaceWidth, v.surfaceHeight
}

// Acquire implements gfx.Surface.
func (v *VulkanRenderer) Acquire(imageAvailable gfx.Semaphore) (int, error) {
	return v.swapchain.Acquire(imageAvailable)
}

// Present implements gfx.Surface.
func (v *VulkanRenderer) Present(wait gfx.Semaphore, imageIndex int) error {
	return v.swapchain.Present(wait, imageIndex)
}

// ImageCount implements gfx.Surface.
func (v *VulkanRenderer) ImageCount() int {
	return v.swapchain.ImageCount()
}

// Recreate implements gfx.Surface. The frame pipeline calls it with the
// device idle, so the whole presentation chain can be swapped out.
func (v *VulkanRenderer) Recreate() error {
	width, height := v.surfaceSize()

	v.releaseImageResources()
	if err := v.swapchain.Recreate(width, height); err != nil {
		return err
	}
	return v.createImageResources()
}

// Destroy implements interface
func (v *VulkanRenderer) Destroy() {
	if v.frames != nil {
		if err := v.frames.Destroy(); err != nil {
			log.Errorf("frame pipeline shutdown: %s", err.Error())
		}
	}
	if v.gpuMesh != nil {
		v.gpuMesh.Release()
	}
	if v.pipeline != nil {
		v.pipeline.Release()
	}
	if v.ctx != nil {
		v.releaseImageResources()
	}
	if v.texture != nil {
		v.texture.Release()
	}
	for _, shader := range v.shaders {
		shader.Release()
	}
	if v.renderPass != nil {
		v.renderPass.Release()
	}
	if v.swapchain != nil {
		v.swapchain.Release()
	}
	if v.ctx != nil {
		v.ctx.Release()
	}
}

func whitePixel() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	return img
}

func uniformBytes(u *model.Uniform) []byte {
	const m = 0x7fffffff
	size := unsafe.Sizeof(*u)
	return (*[m]byte)(unsafe.Pointer(u))[:size:size]
}
