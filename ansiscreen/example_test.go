// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ansiscreen_test

import (
	"image"
	"image/color"
	"log"

	"github.com/GermanBionicSystems/airmonitor/ansiscreen"
)

func Example() {
	d := ansiscreen.New(&ansiscreen.Opts{W: 16, H: 8})
	defer d.Halt()

	img := image.NewNRGBA(d.Bounds())
	for x := 0; x < 16; x++ {
		img.Set(x, x/2, color.NRGBA{255, 128, 0, 255})
	}
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		log.Fatal(err)
	}
}
