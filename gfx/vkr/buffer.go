// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// NewBuffer creates, configures, allocates and binds a new buffer.
func NewBuffer(ctx *Context, size uint, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(ctx.device, &createInfo, nil, &buffer)); err != nil {
		return nil, fmt.Errorf("vk.CreateBuffer(): %s", err.Error())
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.device, buffer, &req)
	req.Deref()

	memory, err := ctx.allocator.Malloc(req, props)
	if err != nil {
		vk.DestroyBuffer(ctx.device, buffer, nil)
		return nil, err
	}
	vk.BindBufferMemory(ctx.device, buffer, memory.Get(), 0)

	return &Buffer{
		device: ctx.device,
		buffer: buffer,
		memory: memory,
		size:   size,
	}, nil
}

// NewDeviceBuffer creates a device local buffer and fills it with data
// through a throwaway staging buffer. Meant for resources written once
// and read by the device every frame.
func NewDeviceBuffer(ctx *Context, data []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	staging, err := NewBuffer(ctx, uint(len(data)), vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	if err := staging.Update(data); err != nil {
		return nil, err
	}

	buffer, err := NewBuffer(ctx, uint(len(data)), usage|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	if err := staging.CopyTo(ctx, buffer); err != nil {
		buffer.Release()
		return nil, err
	}
	return buffer, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint

	memory Memory
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint {
	return b.size
}

// Update writes data into the buffer. The buffer must have been created
// host visible.
func (b *Buffer) Update(data []byte) error {
	ptr, err := b.memory.Map()
	if err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	b.memory.Unmap()
	return nil
}

// CopyTo copies the whole buffer into dst on the device.
func (b *Buffer) CopyTo(ctx *Context, dst *Buffer) error {
	return ctx.oneShot(func(cmd vk.CommandBuffer) {
		region := vk.BufferCopy{Size: vk.DeviceSize(b.size)}
		vk.CmdCopyBuffer(cmd, b.buffer, dst.buffer, 1, []vk.BufferCopy{region})
	})
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
}
