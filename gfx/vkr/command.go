// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// NewCommandBuffer allocates a primary command buffer from the pool.
func NewCommandBuffer(dev vk.Device, pool vk.CommandPool) (*CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	buffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(dev, &allocateInfo, buffers)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %s", err.Error())
	}
	return &CommandBuffer{
		device: dev,
		pool:   pool,
		buffer: buffers[0],
	}, nil
}

// CommandBuffer records work for one frame. It is re-recorded every time
// its slot comes up, so recordings are marked one time submit.
type CommandBuffer struct {
	device vk.Device
	pool   vk.CommandPool
	buffer vk.CommandBuffer
}

// Get returns the vulkan command buffer handle.
func (c *CommandBuffer) Get() vk.CommandBuffer {
	return c.buffer
}

// Begin opens the buffer for recording, implicitly resetting the
// previous recording.
func (c *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(c.buffer, &beginInfo)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}
	return nil
}

// End closes the recording.
func (c *CommandBuffer) End() error {
	if err := vk.Error(vk.EndCommandBuffer(c.buffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}
	return nil
}

// Release frees the buffer back to its pool.
func (c *CommandBuffer) Release() {
	vk.FreeCommandBuffers(c.device, c.pool, 1, []vk.CommandBuffer{c.buffer})
}
