package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
	UV    glm.Vec2
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// Mesh is the geometry unit renderers consume.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
		},
	}
}

// Quad returns a unit quad lying in the XY plane, textured corner to
// corner.
func Quad() Mesh {
	return Mesh{
		Vertices: []Vertex{
			{Pos: glm.Vec3{-0.5, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}, UV: glm.Vec2{0, 0}},
			{Pos: glm.Vec3{0.5, -0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}, UV: glm.Vec2{1, 0}},
			{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}, UV: glm.Vec2{1, 1}},
			{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{1, 1, 1, 1}, UV: glm.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// Cube returns a unit cube around the origin. Every face carries the
// full texture, faces are tinted so depth testing shows.
func Cube() Mesh {
	faces := []struct {
		corners [4]glm.Vec3
		color   glm.Vec4
	}{
		{[4]glm.Vec3{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}, glm.Vec4{1, 0, 0, 1}},
		{[4]glm.Vec3{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, glm.Vec4{0, 1, 0, 1}},
		{[4]glm.Vec3{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}, glm.Vec4{0, 0, 1, 1}},
		{[4]glm.Vec3{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}, glm.Vec4{1, 1, 0, 1}},
		{[4]glm.Vec3{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}, glm.Vec4{1, 0, 1, 1}},
		{[4]glm.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}, glm.Vec4{0, 1, 1, 1}},
	}

	uvs := [4]glm.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	var mesh Mesh
	for _, face := range faces {
		base := uint32(len(mesh.Vertices))
		for idx, corner := range face.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Pos:   corner,
				Color: face.color,
				UV:    uvs[idx],
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return mesh
}
