package model_test

import (
	"testing"

	"github.com/berylllium/lise/model"
)

func TestVertexDescriptions(t *testing.T) {
	bindings := model.VertexBindingDescriptions()
	if len(bindings) != 1 {
		t.Fatalf("expected a single binding, got %d", len(bindings))
	}

	attributes := model.VertexAttributeDescriptions()
	if len(attributes) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attributes))
	}
	for idx, attr := range attributes {
		if attr.Location != uint32(idx) {
			t.Errorf("attribute %d has location %d", idx, attr.Location)
		}
		if attr.Offset >= bindings[0].Stride {
			t.Errorf("attribute %d offset %d outside the vertex stride %d",
				idx, attr.Offset, bindings[0].Stride)
		}
	}
}

func TestMeshIndicesInBounds(t *testing.T) {
	for name, mesh := range map[string]model.Mesh{
		"quad": model.Quad(),
		"cube": model.Cube(),
	} {
		if len(mesh.Indices)%3 != 0 {
			t.Errorf("%s indices do not form whole triangles", name)
		}
		for _, index := range mesh.Indices {
			if int(index) >= len(mesh.Vertices) {
				t.Errorf("%s index %d out of bounds", name, index)
			}
		}
	}
}

func TestCubeGeometry(t *testing.T) {
	cube := model.Cube()
	if len(cube.Vertices) != 24 {
		t.Errorf("expected 24 vertices, got %d", len(cube.Vertices))
	}
	if len(cube.Indices) != 36 {
		t.Errorf("expected 36 indices, got %d", len(cube.Indices))
	}
}
