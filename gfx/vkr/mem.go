// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// NewMemoryAllocator caches the memory properties of the physical
// device for Malloc to search. They do not change for the lifetime of
// the device.
func NewMemoryAllocator(device vk.Device, phyDevice vk.PhysicalDevice) (*MemoryAllocator, error) {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(phyDevice, &memProperties)
	memProperties.Deref()

	return &MemoryAllocator{
		device:        device,
		memProperties: memProperties,
	}, nil
}

// MemoryAllocator hands out device memory regions matched to the
// property flags a resource asks for.
type MemoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

// Malloc allocates a region satisfying req from the first memory type
// that carries the wanted properties.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlagBits) (Memory, error) {
	memTypeIdx, err := ma.pickMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(prop))
	if err != nil {
		return Memory{}, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(ma.device, &allocateInfo, nil, &memory)); err != nil {
		return Memory{}, fmt.Errorf("vk.AllocateMemory(): %s", err.Error())
	}
	return Memory{
		device: ma.device,
		memory: memory,
		size:   req.Size,
	}, nil
}

// pickMemoryType walks the device's memory types, skipping those the
// resource cannot live in, until one carries every wanted property.
func (ma *MemoryAllocator) pickMemoryType(typeBits uint32, want vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < ma.memProperties.MemoryTypeCount; idx++ {
		if typeBits&(1<<idx) == 0 {
			continue
		}
		ma.memProperties.MemoryTypes[idx].Deref()
		if ma.memProperties.MemoryTypes[idx].PropertyFlags&want == want {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches bits %#x with properties %#x", typeBits, want)
}

// Memory is one device allocation, owned by whatever resource bound it.
type Memory struct {
	device vk.Device
	memory vk.DeviceMemory
	size   vk.DeviceSize
	mapped bool
}

// Get returns the handle binding calls want.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Size returns the size of the allocation in bytes.
func (m *Memory) Size() vk.DeviceSize {
	return m.size
}

// Map makes the whole region host-addressable. The memory must have been
// allocated host visible.
func (m *Memory) Map() (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(m.device, m.memory, 0, m.size, 0, &ptr)); err != nil {
		return nil, fmt.Errorf("vk.MapMemory(): %s", err.Error())
	}
	m.mapped = true
	return ptr, nil
}

// Unmap undoes Map.
func (m *Memory) Unmap() {
	if m.mapped {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = false
	}
}

// Release frees memory.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}
