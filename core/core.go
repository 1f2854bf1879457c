package core

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Renderer is the engine side of a graphics backend. A renderer comes
// out of its constructor inert and only touches the device once
// Initialise runs.
type Renderer interface {
	// Initialise picks a device and builds the full presentation chain
	Initialise() error

	// DeviceIsSuitable reports whether the device can drive the
	// pipeline, with the reason when it cannot
	DeviceIsSuitable(vk.PhysicalDevice) (bool, string)

	// Draw renders and presents the next frame. A frame dropped
	// because the surface went stale is not an error, the renderer
	// recovers on its own.
	Draw() error

	// Resize tells the renderer the drawable area changed. The actual
	// rebuild happens on the next Draw.
	Resize(width, height uint32)

	// Destroy waits for the device and releases everything
	Destroy()
}

// Instance wraps a Vulkan instance once the loader has been primed.
type Instance interface {
	// PhysicalDevicesInfo describes every physical device on the host
	PhysicalDevicesInfo() []PhysicalDeviceInfo

	// AvailableDevices lists the raw physical device handles
	AvailableDevices() []vk.PhysicalDevice

	// SetSurface hands over the window surface rendering goes to
	SetSurface(unsafe.Pointer)

	// Surface returns the window surface, or a null surface when none
	// has been set
	Surface() vk.Surface

	// Extensions lists the instance extensions available on the host
	Extensions() []string

	// Inner exposes the backing API handle for windowing interop
	Inner() interface{}

	// Destroy releases the instance and its debug machinery
	Destroy()
}

// PhysicalDeviceInfo is the host report for one physical device,
// shaped for the info tools to serialise.
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        vk.DeviceSize
}

// ShaderType tells the pipeline which stage a shader module feeds.
type ShaderType int

// Stages the shader loaders recognise.
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)
