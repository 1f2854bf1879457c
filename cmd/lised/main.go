// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"os"

	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"
)

var layoutFile = flag.String("layout", "", "Load the interface from a glade file instead of the packed one")

func main() {
	gtk.Init(&os.Args)
	flag.Parse()

	app, err := newEditorApp()
	if err != nil {
		log.Fatal("interface construction: ", err)
	}
	os.Exit(app.Run(os.Args))
}
