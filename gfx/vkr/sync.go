// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// NewFence creates a device fence. A signalled fence lets the first wait
// on it pass immediately.
func NewFence(dev vk.Device, signalled bool) (*Fence, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signalled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(dev, &createInfo, nil, &fence)); err != nil {
		return nil, fmt.Errorf("vk.CreateFence(): %s", err.Error())
	}
	return &Fence{device: dev, fence: fence}, nil
}

// Fence synchronizes the host with work the device has been given.
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Get returns the vulkan fence handle.
func (f *Fence) Get() vk.Fence {
	return f.fence
}

// Wait blocks until the fence signals.
func (f *Fence) Wait() error {
	if err := vk.Error(vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %s", err.Error())
	}
	return nil
}

// Reset returns the fence to the unsignalled state. Only valid once all
// work submitted against it has finished.
func (f *Fence) Reset() error {
	if err := vk.Error(vk.ResetFences(f.device, 1, []vk.Fence{f.fence})); err != nil {
		return fmt.Errorf("vk.ResetFences(): %s", err.Error())
	}
	return nil
}

// Release destroys the fence.
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// NewSemaphore creates a device semaphore for queue ordering.
func NewSemaphore(dev vk.Device) (*Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(dev, &createInfo, nil, &semaphore)); err != nil {
		return nil, fmt.Errorf("vk.CreateSemaphore(): %s", err.Error())
	}
	return &Semaphore{device: dev, semaphore: semaphore}, nil
}

// Semaphore orders work on the device, the host never observes it.
type Semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Get returns the vulkan semaphore handle.
func (s *Semaphore) Get() vk.Semaphore {
	return s.semaphore
}

// Release destroys the semaphore.
func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}
