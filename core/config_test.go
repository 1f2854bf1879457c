package core_test

import (
	"testing"

	"github.com/gobuffalo/envy"

	"github.com/berylllium/lise/core"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	cfg := core.LoadConfiguration()
	if cfg.Renderer.FramesInFlight != 2 {
		t.Errorf("expected 2 frames in flight, got %d", cfg.Renderer.FramesInFlight)
	}
	if cfg.Renderer.ScreenWidth != 800 || cfg.Renderer.ScreenHeight != 600 {
		t.Errorf("unexpected default screen size %dx%d",
			cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	}
	if len(cfg.Renderer.DeviceExtensions) == 0 {
		t.Error("expected the swapchain device extension by default")
	}
}

func TestLoadConfigurationFromEnvironment(t *testing.T) {
	envy.Temp(func() {
		envy.Set("LISE_FRAMES_IN_FLIGHT", "3")
		envy.Set("LISE_SCREEN_WIDTH", "1920")
		envy.Set("LISE_VULKAN_DEBUG", "true")
		envy.Set("LISE_DEVICE_EXTENSIONS", "VK_KHR_swapchain,VK_KHR_maintenance1")

		cfg := core.LoadConfiguration()
		if cfg.Renderer.FramesInFlight != 3 {
			t.Errorf("expected 3 frames in flight, got %d", cfg.Renderer.FramesInFlight)
		}
		if cfg.Renderer.ScreenWidth != 1920 {
			t.Errorf("expected width 1920, got %d", cfg.Renderer.ScreenWidth)
		}
		if !cfg.Instance.DebugMode {
			t.Error("debug mode not picked up")
		}
		if len(cfg.Renderer.DeviceExtensions) != 2 {
			t.Errorf("expected 2 device extensions, got %v", cfg.Renderer.DeviceExtensions)
		}
	})
}

func TestLoadConfigurationRejectsGarbage(t *testing.T) {
	envy.Temp(func() {
		envy.Set("LISE_FRAMES_IN_FLIGHT", "several")

		cfg := core.LoadConfiguration()
		if cfg.Renderer.FramesInFlight != 2 {
			t.Errorf("expected the default to hold, got %d", cfg.Renderer.FramesInFlight)
		}
	})
}
