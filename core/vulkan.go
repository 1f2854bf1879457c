package core

import (
	"errors"
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultVulkanApplicationInfo identifies the engine to the driver
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "Lise\x00",
	PEngineName:        "Lise\x00",
}

// NewVulkanInstance primes the loader through the proc address the
// window system hands over, or the system default when window is nil.
// It then creates the instance and snapshots the device list. Debug
// mode pulls in the validation layer and its reporting extension.
func NewVulkanInstance(appInfo *vk.ApplicationInfo, window unsafe.Pointer, cfg InstanceConfiguration) (Instance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_LUNARG_standard_validation")
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if window == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.InstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(window)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		return nil, err
	}

	vi := &VulkanInstance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}

	if cfg.DebugMode {
		if err := vi.setupDebugReporting(); err != nil {
			log.Warn("validation output unavailable: ", err)
		}
	}
	return vi, nil
}

// VulkanInstance holds the created instance and the devices enumerated
// from it. The presentation surface arrives later from the window
// system.
type VulkanInstance struct {
	configuration InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	surface          vk.Surface
	instance         vk.Instance
	debugCallback    vk.DebugReportCallback
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %s", err.Error())
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, fmt.Errorf("vk.EnumeratePhysicalDevices(): %s", err.Error())
	}
	return devices, nil
}

// setupDebugReporting routes validation layer messages into the engine log
func (v *VulkanInstance) setupDebugReporting() error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: debugReport,
	}
	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(v.instance, &createInfo, nil, &callback)); err != nil {
		return errors.New("vk.CreateDebugReportCallback(): " + err.Error())
	}
	v.debugCallback = callback
	return nil
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, layerPrefix string,
	message string, userData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Errorf("[%s] %s", layerPrefix, message)
	default:
		log.Warnf("[%s] %s", layerPrefix, message)
	}
	return vk.Bool32(vk.False)
}

// PhysicalDevicesInfo implements interface
func (v VulkanInstance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	infos := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for idx, device := range v.availableDevices {
		infos[idx] = describeDevice(device)
	}
	return infos
}

// describeDevice collects the report for one device. A failed query
// marks the report invalid but the remaining fields still get filled.
func describeDevice(device vk.PhysicalDevice) PhysicalDeviceInfo {
	var info PhysicalDeviceInfo

	extensions, err := deviceExtensionNames(device)
	if err != nil {
		info.Invalid = true
	}
	info.Extensions = extensions

	layers, err := deviceLayerNames(device)
	if err != nil {
		info.Invalid = true
	}
	info.Layers = layers

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
	memoryProperties.Deref()
	for idx := uint32(0); idx < memoryProperties.MemoryHeapCount; idx++ {
		memoryProperties.MemoryHeaps[idx].Deref()
		info.Memory += memoryProperties.MemoryHeaps[idx].Size
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	info.ID = int(properties.DeviceID)
	info.VendorID = int(properties.VendorID)
	info.DriverVersion = int(properties.DriverVersion)
	info.Name = vk.ToString(properties.DeviceName[:])

	return info
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &count, properties)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, property := range properties {
		property.Deref()
		names = append(names, vk.ToString(property.ExtensionName[:]))
	}
	return names, nil
}

func deviceLayerNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(device, &count, properties)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, property := range properties {
		property.Deref()
		names = append(names, vk.ToString(property.LayerName[:]))
	}
	return names, nil
}

// SetSurface implements interface
func (v *VulkanInstance) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface implements interface
func (v VulkanInstance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// Inner implements interface
func (v *VulkanInstance) Inner() interface{} {
	return v.instance
}

// Extensions implements interface
func (v VulkanInstance) Extensions() []string {
	return v.configuration.Extensions
}

// AvailableDevices implements interface
func (v VulkanInstance) AvailableDevices() []vk.PhysicalDevice {
	return v.availableDevices
}

// Destroy implements interface
func (v *VulkanInstance) Destroy() {
	if v.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(v.instance, v.debugCallback, nil)
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}
