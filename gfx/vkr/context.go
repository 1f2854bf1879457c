// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/gfx"
)

// NewContext builds a logical device over the given physical device,
// together with its queues, command pool and memory allocator. The
// physical device is expected to have passed DeviceIsSuitable.
func NewContext(physicalDevice vk.PhysicalDevice, surface vk.Surface, extensions []string) (*Context, error) {
	graphicsFamily, presentFamily, err := findQueueFamilies(physicalDevice, surface)
	if err != nil {
		return nil, err
	}

	// The two roles usually land on the same family, creating it twice
	// is an error.
	families := []uint32{graphicsFamily}
	if presentFamily != graphicsFamily {
		families = append(families, presentFamily)
	}
	queueInfos := []vk.DeviceQueueCreateInfo{}
	for _, family := range families {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(physicalDevice, &deviceInfo, nil, &device)); err != nil {
		return nil, errors.New("vk.CreateDevice(): " + err.Error())
	}

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, graphicsFamily, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, presentFamily, 0, &presentQueue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(device, &poolInfo, nil, &pool)); err != nil {
		vk.DestroyDevice(device, nil)
		return nil, errors.New("vk.CreateCommandPool(): " + err.Error())
	}

	allocator, err := NewMemoryAllocator(device, physicalDevice)
	if err != nil {
		vk.DestroyCommandPool(device, pool, nil)
		vk.DestroyDevice(device, nil)
		return nil, err
	}

	return &Context{
		physicalDevice: physicalDevice,
		device:         device,
		graphicsQueue:  graphicsQueue,
		presentQueue:   presentQueue,
		graphicsFamily: graphicsFamily,
		presentFamily:  presentFamily,
		commandPool:    pool,
		allocator:      allocator,
	}, nil
}

// Context owns the logical device and everything queue related. All
// frame submissions go through it from a single goroutine.
type Context struct {
	physicalDevice vk.PhysicalDevice
	device         vk.Device

	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	graphicsFamily uint32
	presentFamily  uint32

	commandPool vk.CommandPool
	allocator   *MemoryAllocator
}

// Device returns the vulkan logical device handle.
func (ctx *Context) Device() vk.Device {
	return ctx.device
}

// PhysicalDevice returns the vulkan physical device handle.
func (ctx *Context) PhysicalDevice() vk.PhysicalDevice {
	return ctx.physicalDevice
}

// PresentQueue returns the queue that presentation requests go to.
func (ctx *Context) PresentQueue() vk.Queue {
	return ctx.presentQueue
}

// Allocator returns the context wide memory allocator.
func (ctx *Context) Allocator() *MemoryAllocator {
	return ctx.allocator
}

// QueueFamilies returns the graphics and present family indices.
func (ctx *Context) QueueFamilies() (uint32, uint32) {
	return ctx.graphicsFamily, ctx.presentFamily
}

// Submit hands one frame's recording to the graphics queue. The wait
// semaphores block only color attachment output, earlier pipeline stages
// may run before the image is ready.
func (ctx *Context) Submit(info gfx.SubmitInfo) error {
	waitSemaphores := make([]vk.Semaphore, 0, len(info.WaitFor))
	waitStages := make([]vk.PipelineStageFlags, 0, len(info.WaitFor))
	for _, s := range info.WaitFor {
		waitSemaphores = append(waitSemaphores, s.(*Semaphore).Get())
		waitStages = append(waitStages, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	}
	signalSemaphores := make([]vk.Semaphore, 0, len(info.Signal))
	for _, s := range info.Signal {
		signalSemaphores = append(signalSemaphores, s.(*Semaphore).Get())
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{info.Commands.(*CommandBuffer).Get()},
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}

	fence := vk.NullFence
	if info.Fence != nil {
		fence = info.Fence.(*Fence).Get()
	}
	if err := vk.Error(vk.QueueSubmit(ctx.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (ctx *Context) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(ctx.device)); err != nil {
		return errors.New("vk.DeviceWaitIdle(): " + err.Error())
	}
	return nil
}

// NewFence implements gfx.Device.
func (ctx *Context) NewFence(signalled bool) (gfx.Fence, error) {
	return NewFence(ctx.device, signalled)
}

// NewSemaphore implements gfx.Device.
func (ctx *Context) NewSemaphore() (gfx.Semaphore, error) {
	return NewSemaphore(ctx.device)
}

// NewCommandBuffer implements gfx.Device.
func (ctx *Context) NewCommandBuffer() (gfx.CommandBuffer, error) {
	return NewCommandBuffer(ctx.device, ctx.commandPool)
}

// oneShot records commands into a throwaway buffer, submits it and waits
// for the queue to drain. Used for uploads and layout transitions that
// happen outside the frame loop.
func (ctx *Context) oneShot(record func(cmd vk.CommandBuffer)) error {
	commands, err := NewCommandBuffer(ctx.device, ctx.commandPool)
	if err != nil {
		return err
	}
	defer commands.Release()

	if err := commands.Begin(); err != nil {
		return err
	}
	record(commands.Get())
	if err := commands.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commands.Get()},
	}
	if err := vk.Error(vk.QueueSubmit(ctx.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	if err := vk.Error(vk.QueueWaitIdle(ctx.graphicsQueue)); err != nil {
		return errors.New("vk.QueueWaitIdle(): " + err.Error())
	}
	return nil
}

// Release destroys the device and everything it owns. Outstanding work
// must have been waited out beforehand.
func (ctx *Context) Release() {
	vk.DestroyCommandPool(ctx.device, ctx.commandPool, nil)
	vk.DestroyDevice(ctx.device, nil)
}

// DeviceIsSuitable checks if the device given is suitable for the
// rendering pipeline. If not suitable string contains the reason.
func DeviceIsSuitable(device vk.PhysicalDevice, surface vk.Surface, extensions []string) (bool, string) {
	if _, _, err := findQueueFamilies(device, surface); err != nil {
		return false, err.Error()
	}

	var numExtensions uint32
	vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, nil)
	available := make([]vk.ExtensionProperties, numExtensions)
	vk.EnumerateDeviceExtensionProperties(device, "", &numExtensions, available)

	names := map[string]bool{}
	for _, ext := range available {
		ext.Deref()
		names[vk.ToString(ext.ExtensionName[:])] = true
	}
	for _, required := range extensions {
		if !names[required] {
			return false, fmt.Sprintf("device extension %s not supported", required)
		}
	}

	var numFormats uint32
	vk.GetPhysicalDeviceSurfaceFormats(device, surface, &numFormats, nil)
	if numFormats == 0 {
		return false, "no surface formats supported"
	}

	var numModes uint32
	vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &numModes, nil)
	if numModes == 0 {
		return false, "no surface present modes supported"
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()
	if features.SamplerAnisotropy != vk.True {
		return false, "sampler anisotropy not supported"
	}
	return true, ""
}

func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (uint32, uint32, error) {
	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	graphicsFamily := -1
	presentFamily := -1
	for idx, family := range families {
		family.Deref()
		if family.QueueCount == 0 {
			continue
		}
		if graphicsFamily < 0 && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsFamily = idx
		}

		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, uint32(idx), surface, &presentSupport)
		if presentFamily < 0 && presentSupport == vk.True {
			presentFamily = idx
		}
	}
	if graphicsFamily < 0 {
		return 0, 0, errors.New("no graphics queue family on device")
	}
	if presentFamily < 0 {
		return 0, 0, errors.New("no presentation capable queue family on device")
	}
	return uint32(graphicsFamily), uint32(presentFamily), nil
}
