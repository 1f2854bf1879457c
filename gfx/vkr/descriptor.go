// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// NewDescriptors builds the descriptor machinery for count frames worth
// of bindings: a uniform buffer visible to the vertex stage and a
// combined image sampler for the fragment stage.
func NewDescriptors(dev vk.Device, count int) (*Descriptors, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(dev, &layoutInfo, nil, &layout)); err != nil {
		return nil, fmt.Errorf("vk.CreateDescriptorSetLayout(): %s", err.Error())
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: uint32(count)},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(count)},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       uint32(count),
	}
	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(dev, &poolInfo, nil, &pool)); err != nil {
		vk.DestroyDescriptorSetLayout(dev, layout, nil)
		return nil, fmt.Errorf("vk.CreateDescriptorPool(): %s", err.Error())
	}

	layouts := make([]vk.DescriptorSetLayout, count)
	for idx := range layouts {
		layouts[idx] = layout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if err := vk.Error(vk.AllocateDescriptorSets(dev, &allocateInfo, &sets[0])); err != nil {
		vk.DestroyDescriptorPool(dev, pool, nil)
		vk.DestroyDescriptorSetLayout(dev, layout, nil)
		return nil, fmt.Errorf("vk.AllocateDescriptorSets(): %s", err.Error())
	}

	return &Descriptors{
		device: dev,
		layout: layout,
		pool:   pool,
		sets:   sets,
	}, nil
}

// Descriptors owns the layout, pool and per frame descriptor sets.
type Descriptors struct {
	device vk.Device
	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
}

// Layout returns the set layout for pipeline creation.
func (d *Descriptors) Layout() vk.DescriptorSetLayout {
	return d.layout
}

// Set returns the descriptor set for the given frame index.
func (d *Descriptors) Set(idx int) vk.DescriptorSet {
	return d.sets[idx]
}

// Bind points a frame's descriptor set at its uniform buffer and the
// texture.
func (d *Descriptors) Bind(idx int, uniform *Buffer, texture *Texture) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: uniform.Get(),
		Offset: 0,
		Range:  vk.DeviceSize(uniform.Size()),
	}
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     texture.Sampler(),
		ImageView:   texture.View(),
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.sets[idx],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.sets[idx],
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		},
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(writes)), writes, 0, nil)
}

// Release destroys the pool with its sets, then the layout.
func (d *Descriptors) Release() {
	vk.DestroyDescriptorPool(d.device, d.pool, nil)
	vk.DestroyDescriptorSetLayout(d.device, d.layout, nil)
}
