// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hdc1080

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

var pbInit = []i2ctest.IO{
	{Addr: DefaultAddress, W: []byte{0xfe}},
	{Addr: DefaultAddress, R: []byte{0x54, 0x49}},
	{Addr: DefaultAddress, W: []byte{0xff}},
	{Addr: DefaultAddress, R: []byte{0x10, 0x50}},
	{Addr: DefaultAddress, W: []byte{0x02, 0x00, 0x00}},
}

var testOpts = Opts{}

func TestSense(t *testing.T) {
	ops := append(append([]i2ctest.IO{}, pbInit...),
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x00}},
		i2ctest.IO{Addr: DefaultAddress, R: []byte{0x60, 0x00}},
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x01}},
		i2ctest.IO{Addr: DefaultAddress, R: []byte{0x70, 0x00}},
	)
	bus := i2ctest.Playback{Ops: ops}
	dev, err := NewI2C(&bus, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if expected := physic.ZeroCelsius + 21875*physic.MilliKelvin; e.Temperature != expected {
		t.Errorf("temperature %s(%d) != %s(%d)", expected, expected, e.Temperature, e.Temperature)
	}
	if expected := 4375 * physic.PercentRH / 100; e.Humidity != expected {
		t.Errorf("humidity %s(%d) != %s(%d)", expected, expected, e.Humidity, e.Humidity)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWrongManufacturer(t *testing.T) {
	bus := i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: DefaultAddress, W: []byte{0xfe}},
		{Addr: DefaultAddress, R: []byte{0x00, 0x00}},
	}}
	if _, err := NewI2C(&bus, &testOpts); err == nil {
		t.Fatal("expected an error")
	}
}

func TestHeater(t *testing.T) {
	ops := append(append([]i2ctest.IO{}, pbInit...),
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x02, 0x20, 0x00}},
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x02, 0x80, 0x00}},
	)
	bus := i2ctest.Playback{Ops: ops}
	dev, err := NewI2C(&bus, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.SetHeater(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCountConversions(t *testing.T) {
	if got := countToTemperature(0x8000); got != physic.ZeroCelsius+42500*physic.MilliKelvin {
		t.Errorf("temperature %s", got)
	}
	if got := countToTemperature(0); got != physic.ZeroCelsius-40*physic.Celsius {
		t.Errorf("temperature %s", got)
	}
	if got := countToHumidity(0x8000); got != 50*physic.PercentRH {
		t.Errorf("humidity %s", got)
	}
}
