// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
)

// Configuration is the main engine configuration structure
type Configuration struct {
	Instance InstanceConfiguration
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// InstanceConfiguration describes how the Vulkan instance is created
type InstanceConfiguration struct {
	// DebugMode loads the validation layers and wires their output
	// into the engine log.
	DebugMode bool

	Extensions []string
	Layers     []string
}

// TimeConfiguration contains the settings for the engine timer
type TimeConfiguration struct {
	FramesPerSecond int

	// EventPollDelay is the window event polling interval in
	// milliseconds.
	EventPollDelay int
}

// RendererConfiguration contains settings for the renderer
type RendererConfiguration struct {
	// FramesInFlight caps how many frames may be recorded before the
	// device has finished the oldest one.
	FramesInFlight int

	DeviceExtensions []string
	ScreenWidth      uint32
	ScreenHeight     uint32

	// ShaderDirectory is scanned for compiled shaders. ShaderArchive,
	// when set, names a lar archive to read them from instead.
	ShaderDirectory string
	ShaderArchive   string
}

// DefaultConfiguration returns the configuration the engine runs with
// when nothing overrides it.
func DefaultConfiguration() Configuration {
	return Configuration{
		Instance: InstanceConfiguration{},
		Time: TimeConfiguration{
			FramesPerSecond: 2000,
			EventPollDelay:  50,
		},
		Renderer: RendererConfiguration{
			FramesInFlight:   2,
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			ScreenWidth:      800,
			ScreenHeight:     600,
			ShaderDirectory:  "./shaders",
		},
	}
}

// LoadConfiguration builds the engine configuration from the process
// environment, falling back on the defaults for anything unset.
func LoadConfiguration() Configuration {
	cfg := DefaultConfiguration()

	cfg.Instance.DebugMode = envBool("LISE_VULKAN_DEBUG", cfg.Instance.DebugMode)
	cfg.Time.FramesPerSecond = envInt("LISE_FRAMES_PER_SECOND", cfg.Time.FramesPerSecond)
	cfg.Time.EventPollDelay = envInt("LISE_EVENT_POLL_DELAY", cfg.Time.EventPollDelay)
	cfg.Renderer.FramesInFlight = envInt("LISE_FRAMES_IN_FLIGHT", cfg.Renderer.FramesInFlight)
	cfg.Renderer.ScreenWidth = envUint32("LISE_SCREEN_WIDTH", cfg.Renderer.ScreenWidth)
	cfg.Renderer.ScreenHeight = envUint32("LISE_SCREEN_HEIGHT", cfg.Renderer.ScreenHeight)
	cfg.Renderer.ShaderDirectory = envy.Get("LISE_SHADER_DIRECTORY", cfg.Renderer.ShaderDirectory)
	cfg.Renderer.ShaderArchive = envy.Get("LISE_SHADER_ARCHIVE", cfg.Renderer.ShaderArchive)

	if ext := envy.Get("LISE_DEVICE_EXTENSIONS", ""); ext != "" {
		cfg.Renderer.DeviceExtensions = strings.Split(ext, ",")
	}
	return cfg
}

func envInt(key string, def int) int {
	val, err := strconv.Atoi(envy.Get(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return val
}

func envUint32(key string, def uint32) uint32 {
	val, err := strconv.ParseUint(envy.Get(key, strconv.FormatUint(uint64(def), 10)), 10, 32)
	if err != nil {
		return def
	}
	return uint32(val)
}

func envBool(key string, def bool) bool {
	val, err := strconv.ParseBool(envy.Get(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return val
}
