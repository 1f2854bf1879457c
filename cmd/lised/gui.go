// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/gobuffalo/packr"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"

	"github.com/berylllium/lise/core"
)

// The glade layouts ship inside the binary.
var staticResources = packr.NewBox("./resources")

func layoutSource() (string, error) {
	if *layoutFile != "" {
		data, err := os.ReadFile(*layoutFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return staticResources.FindString("lised.glade")
}

func newEditorApp() (*gtk.Application, error) {
	app, err := gtk.ApplicationNew("org.berylllium.lised", glib.APPLICATION_FLAGS_NONE)
	if err != nil {
		return nil, err
	}

	app.Connect("activate", func() {
		if err := activate(app); err != nil {
			log.Fatal("activation: ", err)
		}
	})
	app.Connect("shutdown", func() {
		log.Info("editor shutting down")
	})
	return app, nil
}

// activate inflates the main window from the layout and fills the
// device view before showing anything.
func activate(app *gtk.Application) error {
	layout, err := layoutSource()
	if err != nil {
		return err
	}

	builder, err := gtk.BuilderNew()
	if err != nil {
		return err
	}
	if err := builder.AddFromString(layout); err != nil {
		return err
	}

	obj, err := builder.GetObject("mainWindow")
	if err != nil {
		return err
	}
	win, ok := obj.(*gtk.Window)
	if !ok {
		return errors.New("mainWindow is not a gtk.Window")
	}
	win.SetDefaultSize(600, 480)

	if err := showDevices(builder); err != nil {
		log.Error(err)
	}

	win.ShowAll()
	app.AddWindow(win)
	return nil
}

// showDevices fills the device view with what the Vulkan instance
// reports about the machine.
func showDevices(builder *gtk.Builder) error {
	obj, err := builder.GetObject("deviceView")
	if err != nil {
		return err
	}
	view, ok := obj.(*gtk.TextView)
	if !ok {
		return errors.New("deviceView is not a gtk.TextView")
	}
	buffer, err := view.GetBuffer()
	if err != nil {
		return err
	}

	cfg := core.InstanceConfiguration{
		Extensions: []string{},
		Layers:     []string{},
	}
	coreInstance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, nil, cfg)
	if err != nil {
		return err
	}
	defer coreInstance.Destroy()

	info, err := json.MarshalIndent(coreInstance.PhysicalDevicesInfo(), "", "  ")
	if err != nil {
		return err
	}

	buffer.SetText(string(info))
	return nil
}
