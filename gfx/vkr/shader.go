// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vk "github.com/vulkan-go/vulkan"

	"github.com/berylllium/lise/core"
	"github.com/berylllium/lise/utility/lar"
)

const shaderSuffix = ".spv"

// NewShader wraps compiled SPIR-V code into a shader module.
func NewShader(dev vk.Device, data []byte, typ core.ShaderType, name string) (*Shader, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    core.SliceUint32(data),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(dev, &createInfo, nil, &module)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(): %s", err.Error())
	}
	return &Shader{
		device: dev,
		module: module,
		typ:    typ,
		name:   name,
	}, nil
}

// Shader is a compiled shader module tagged with its pipeline stage.
type Shader struct {
	device vk.Device
	module vk.ShaderModule
	typ    core.ShaderType
	name   string
}

// Module returns the vulkan shader module handle.
func (s *Shader) Module() vk.ShaderModule {
	return s.module
}

// Type returns what pipeline stage the shader belongs to.
func (s *Shader) Type() core.ShaderType {
	return s.typ
}

// Name returns the shader name derived from its file name.
func (s *Shader) Name() string {
	return s.name
}

// Stage maps the shader type onto the vulkan stage bit.
func (s *Shader) Stage() vk.ShaderStageFlagBits {
	switch s.typ {
	case core.VertexShaderType:
		return vk.ShaderStageVertexBit
	case core.FragmentShaderType:
		return vk.ShaderStageFragmentBit
	default:
		return 0
	}
}

// Release destroys the module. Safe once the pipelines built from it
// exist.
func (s *Shader) Release() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}

// shaderNameAndType parses names of the name.type.spv form. Files that
// don't follow it report UnknownShaderType.
func shaderNameAndType(filename string) (string, core.ShaderType) {
	if !strings.HasSuffix(filename, shaderSuffix) {
		return "", core.UnknownShaderType
	}
	nodes := strings.Split(strings.TrimSuffix(filename, shaderSuffix), ".")
	if len(nodes) != 2 {
		return "", core.UnknownShaderType
	}
	switch nodes[1] {
	case "vert":
		return nodes[0], core.VertexShaderType
	case "frag":
		return nodes[0], core.FragmentShaderType
	default:
		return "", core.UnknownShaderType
	}
}

// shaderFilesFromDirectory gets the list of files that are compiled shaders.
// It is important that the file name does not contain more than two dots,
// the first is always the name of the shader, second is type, and the third one
// ensured that the shader is compiled (only compiled shaders have an .spv extension).
// All shader files will be loaded.
func shaderFilesFromDirectory(dir string) ([]string, []core.ShaderType, error) {
	var (
		shaders     []string
		shaderTypes []core.ShaderType
	)
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}

		if _, typ := shaderNameAndType(f.Name()); typ != core.UnknownShaderType {
			shaders = append(shaders, path)
			shaderTypes = append(shaderTypes, typ)
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return shaders, shaderTypes, nil
}

// LoadShaderDirectory compiles every shader file found under dir into a
// module.
func LoadShaderDirectory(dev vk.Device, dir string) ([]*Shader, error) {
	paths, types, err := shaderFilesFromDirectory(dir)
	if err != nil {
		return nil, err
	}

	shaders := make([]*Shader, 0, len(paths))
	for idx, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			releaseShaders(shaders)
			return nil, err
		}
		name, _ := shaderNameAndType(filepath.Base(path))
		shader, err := NewShader(dev, data, types[idx], name)
		if err != nil {
			releaseShaders(shaders)
			return nil, err
		}
		shaders = append(shaders, shader)
	}
	return shaders, nil
}

// LoadShaderArchive reads compiled shaders out of a lar archive instead
// of the filesystem.
func LoadShaderArchive(dev vk.Device, path string) ([]*Shader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	archive, err := lar.Open(file)
	if err != nil {
		return nil, fmt.Errorf("lar.Open(): %s", err.Error())
	}

	var shaders []*Shader
	for _, entry := range archive.Files() {
		name, typ := shaderNameAndType(filepath.Base(entry))
		if typ == core.UnknownShaderType {
			continue
		}
		data, err := archive.ReadAll(entry)
		if err != nil {
			releaseShaders(shaders)
			return nil, err
		}
		shader, err := NewShader(dev, data, typ, name)
		if err != nil {
			releaseShaders(shaders)
			return nil, err
		}
		shaders = append(shaders, shader)
	}
	return shaders, nil
}

func releaseShaders(shaders []*Shader) {
	for _, shader := range shaders {
		shader.Release()
	}
}
