// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/berylllium/lise/core"
)

var (
	pretty = flag.Bool("pretty", false, "Indent the report for reading")
	debug  = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
)

// Dumps the physical device report as JSON, for piping into whatever
// wants to know what the host can do.
func main() {
	flag.Parse()

	cfg := core.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: []string{},
		Layers:     []string{},
	}

	instance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, nil, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Destroy()

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(instance.PhysicalDevicesInfo()); err != nil {
		log.Fatal(err)
	}
}
