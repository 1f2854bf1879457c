// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/model"
)

// NewMesh uploads the geometry into device local vertex and index
// buffers.
func NewMesh(ctx *Context, m model.Mesh) (*Mesh, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, errors.New("mesh has no geometry")
	}

	vertices, err := NewDeviceBuffer(ctx, vertexBytes(m.Vertices), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return nil, err
	}
	indices, err := NewDeviceBuffer(ctx, indexBytes(m.Indices), vk.BufferUsageIndexBufferBit)
	if err != nil {
		vertices.Release()
		return nil, err
	}

	return &Mesh{
		vertices:   vertices,
		indices:    indices,
		indexCount: uint32(len(m.Indices)),
	}, nil
}

// Mesh is geometry resident on the device, ready to draw.
type Mesh struct {
	vertices   *Buffer
	indices    *Buffer
	indexCount uint32
}

// Draw records the indexed draw for the whole mesh.
func (m *Mesh) Draw(cmd vk.CommandBuffer) {
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{m.vertices.Get()}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd, m.indices.Get(), 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cmd, m.indexCount, 1, 0, 0, 0)
}

// Release frees both geometry buffers.
func (m *Mesh) Release() {
	m.vertices.Release()
	m.indices.Release()
}

func vertexBytes(vertices []model.Vertex) []byte {
	const m = 0x7fffffff
	size := len(vertices) * int(unsafe.Sizeof(model.Vertex{}))
	return (*[m]byte)(unsafe.Pointer(&vertices[0]))[:size:size]
}

func indexBytes(indices []uint32) []byte {
	const m = 0x7fffffff
	size := len(indices) * 4
	return (*[m]byte)(unsafe.Pointer(&indices[0]))[:size:size]
}
