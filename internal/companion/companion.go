// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package companion opens the temperature and humidity sensor used to
// compensate the gas sensor.
package companion

import (
	"fmt"
	"strconv"

	"github.com/MichaelS11/go-dht"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/airmonitor/hdc1080"
	"github.com/GermanBionicSystems/airmonitor/internal/config"
)

// Sensor reports the ambient temperature and humidity.
type Sensor interface {
	Sense(e *physic.Env) error
	Halt() error
	String() string
}

// Open returns the companion sensor selected by o.
func Open(o config.CompanionOpt) (Sensor, error) {
	switch o.Kind {
	case config.CompanionHDC1080:
		b, err := i2creg.Open(strconv.Itoa(o.Bus))
		if err != nil {
			return nil, errors.Wrapf(err, "companion: open i2c bus %d", o.Bus)
		}
		d, err := hdc1080.NewI2C(b, nil)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		return &onBus{Dev: d, bus: b}, nil
	case config.CompanionDHT22:
		d, err := dht.NewDHT(o.Pin, dht.Celsius, "dht22")
		if err != nil {
			return nil, errors.Wrapf(err, "companion: dht22 on %s", o.Pin)
		}
		return &DHT22{pin: o.Pin, d: d, Retries: 11}, nil
	case config.CompanionNone:
		return Default, nil
	default:
		return nil, errors.Errorf("companion: unknown sensor %q", o.Kind)
	}
}

// onBus releases the bus it owns on Halt.
type onBus struct {
	*hdc1080.Dev
	bus i2c.BusCloser
}

func (o *onBus) Halt() error {
	err := o.Dev.Halt()
	if err2 := o.bus.Close(); err == nil {
		err = err2
	}
	return err
}

// DHT22 reads a DHT22 on a GPIO pin.
type DHT22 struct {
	Retries int

	pin string
	d   *dht.DHT
}

func (d *DHT22) Sense(e *physic.Env) error {
	h, t, err := d.d.ReadRetry(d.Retries)
	if err != nil {
		return errors.Wrap(err, "dht22")
	}
	env(t, h, e)
	return nil
}

func (d *DHT22) Halt() error {
	return nil
}

func (d *DHT22) String() string {
	return fmt.Sprintf("DHT22{%s}", d.pin)
}

// Fixed reports constant conditions. It stands in when no companion sensor
// is fitted.
type Fixed struct {
	Temperature float64
	Humidity    float64
}

// Default matches the sensor power-on compensation.
var Default = &Fixed{Temperature: 25, Humidity: 50}

func (f *Fixed) Sense(e *physic.Env) error {
	env(f.Temperature, f.Humidity, e)
	return nil
}

func (f *Fixed) Halt() error {
	return nil
}

func (f *Fixed) String() string {
	return fmt.Sprintf("Fixed{%.2f°C, %.2f%%rH}", f.Temperature, f.Humidity)
}

func env(celsius, percent float64, e *physic.Env) {
	e.Temperature = physic.ZeroCelsius + physic.Temperature(celsius*float64(physic.Celsius))
	e.Humidity = physic.RelativeHumidity(percent * float64(physic.PercentRH))
}

// Celsius and Percent convert a physic.Env back to plain numbers.
func Celsius(e *physic.Env) float64 {
	return e.Temperature.Celsius()
}

func Percent(e *physic.Env) float64 {
	return float64(e.Humidity) / float64(physic.PercentRH)
}
