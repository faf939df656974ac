// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dashboard renders the air monitor screens on a display.Drawer.
//
// Layout is done on a 128x160 portrait canvas and scaled to the display.
package dashboard

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/airmonitor/ccs811"
	"github.com/GermanBionicSystems/airmonitor/internal/record"
)

// Size of the layout canvas.
const (
	Width  = 128
	Height = 160
)

// Full scale of the colour map per row.
const (
	ScaleECO2        = 1200
	ScaleTVOC        = 660
	ScaleTemperature = 50
	ScaleHumidity    = 70
)

var (
	white   = color.NRGBA{255, 255, 255, 255}
	red     = color.NRGBA{255, 0, 0, 255}
	blue    = color.NRGBA{0, 0, 255, 255}
	green   = color.NRGBA{0, 255, 0, 255}
	modeFg  = color.NRGBA{0, 198, 120, 255}
	statsFg = color.NRGBA{120, 198, 0, 255}
)

// Dashboard draws frames on a display.
type Dashboard struct {
	d    display.Drawer
	dc   *gg.Context
	big  font.Face
	head font.Face
}

// New returns a Dashboard drawing on d.
func New(d display.Drawer) (*Dashboard, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	r := d.Bounds()
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("dashboard: empty display %s", r)
	}
	dc := gg.NewContext(r.Dx(), r.Dy())
	dc.Scale(float64(r.Dx())/Width, float64(r.Dy())/Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	return &Dashboard{
		d:    d,
		dc:   dc,
		big:  truetype.NewFace(f, &truetype.Options{Size: 24}),
		head: truetype.NewFace(f, &truetype.Options{Size: 10}),
	}, nil
}

func (d *Dashboard) String() string {
	return fmt.Sprintf("Dashboard{%s}", d.d)
}

// Boot draws the status box: blue while the sensor is being set up, green
// once its hardware id was verified.
func (d *Dashboard) Boot(ok bool) error {
	c := blue
	if !ok {
		d.clear()
	} else {
		c = green
	}
	d.dc.SetColor(c)
	d.dc.DrawRectangle(20, 20, Width-40, Height-40)
	d.dc.Fill()
	return d.flush()
}

// HardwareError overlays the fatal hardware id mismatch message.
func (d *Dashboard) HardwareError() error {
	d.text("HARDWARE\nERROR", 0, 0, d.big, red)
	return d.flush()
}

// Info shows the sensor configuration after initialization.
func (d *Dashboard) Info(m ccs811.MeasMode, s ccs811.Status) error {
	d.clear()
	_, y := d.text("MEAS_MODE:", 0, 0, d.big, modeFg)
	_, y = d.text("      "+m.String(), 0, y, d.big, modeFg)
	_, y = d.text("STATUS   :", 0, y, d.big, statsFg)
	d.text("      "+s.String(), 0, y, d.big, statsFg)
	return d.flush()
}

// Frame draws the clock and the last reading. The clock colon is hidden when
// blink is set.
func (d *Dashboard) Frame(now time.Time, blink bool, r record.Reading) error {
	d.clear()
	sep := ":"
	if blink {
		sep = " "
	}
	x0, y0 := d.text(now.Format("15"+sep+"04"), 0, 3, d.big, white)
	d.text(now.Format("02/01\n2006"), x0+9, 3, d.head, white)
	d.dc.SetColor(white)
	d.dc.SetLineWidth(3)
	d.dc.DrawLine(x0+3, 0, x0+3, y0+4)
	d.dc.DrawLine(0, y0+4, Width, y0+4)
	d.dc.Stroke()

	y := y0 + 8
	y = d.row("eCO2 :\nppm", gas(r.ECO2, r.ECO2Valid), level(float64(r.ECO2), ScaleECO2, r.ECO2Valid), y) + 6
	y = d.row("TVOC :\nppb", gas(r.TVOC, r.TVOCValid), level(float64(r.TVOC), ScaleTVOC, r.TVOCValid), y) + 6
	// The ambient rows turn red too when the gas reading is in error.
	ambient := r.TVOCValid && r.AmbientValid
	y = d.row("TEMP :\nC", fmt.Sprintf("%0.2f", r.Temperature), level(r.Temperature, ScaleTemperature, ambient), y) + 6
	d.row("HUMID:\n%", fmt.Sprintf("%0.2f", r.Humidity), level(r.Humidity, ScaleHumidity, ambient), y)
	return d.flush()
}

// Image returns the last rendered image.
func (d *Dashboard) Image() image.Image {
	return d.dc.Image()
}

func (d *Dashboard) row(label, value string, c color.Color, y float64) float64 {
	x0, _ := d.text(label, 0, y, d.head, c)
	_, y = d.text(value, x0+1, y, d.big, c)
	return y
}

func (d *Dashboard) clear() {
	d.dc.SetRGB(0, 0, 0)
	d.dc.Clear()
}

func (d *Dashboard) flush() error {
	return d.d.Draw(d.d.Bounds(), d.dc.Image(), image.Point{})
}

// text draws s with its top left corner at x, y and returns the point just
// past its bottom right corner.
func (d *Dashboard) text(s string, x, y float64, f font.Face, c color.Color) (float64, float64) {
	d.dc.SetFontFace(f)
	d.dc.SetColor(c)
	lh := float64(f.Metrics().Height) / 64
	var w float64
	for i, line := range strings.Split(s, "\n") {
		d.dc.DrawStringAnchored(line, x, y+float64(i)*lh, 0, 1)
		if lw, _ := d.dc.MeasureString(line); lw > w {
			w = lw
		}
	}
	return x + w + 2, y + lh*float64(strings.Count(s, "\n")+1) + 2
}

func gas(v uint16, valid bool) string {
	if !valid {
		return "ERROR"
	}
	return fmt.Sprint(v)
}

func level(v, scale float64, valid bool) color.Color {
	if !valid {
		return red
	}
	return Rainbow(v / scale)
}

// Rainbow maps x in [0, 1] on a purple to red colour ramp. Values outside
// are clamped.
func Rainbow(x float64) color.NRGBA {
	x = clamp(x)
	return color.NRGBA{
		R: uint8(255 * clamp(math.Abs(2*x-0.5))),
		G: uint8(255 * clamp(math.Sin(math.Pi*x))),
		B: uint8(255 * clamp(math.Cos(math.Pi/2*x))),
		A: 255,
	}
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
