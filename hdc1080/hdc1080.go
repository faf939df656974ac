// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hdc1080

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the only address of the HDC1080.
const DefaultAddress uint16 = 0x40

const (
	regTemperature    byte = 0x00
	regHumidity       byte = 0x01
	regConfiguration  byte = 0x02
	regManufacturerID byte = 0xFE
	regDeviceID       byte = 0xFF
)

const (
	manufacturerTI uint16 = 0x5449
	deviceHDC1080  uint16 = 0x1050
)

const (
	configReset  uint16 = 1 << 15
	configHeater uint16 = 1 << 13
)

// Opts holds the configuration options for the device.
type Opts struct {
	// ConversionDelay is waited between a measurement trigger and its read.
	// A 14 bit conversion takes 6.5ms. Default is 15ms.
	ConversionDelay time.Duration
	// Heater enables the internal heater, used to drive off condensation.
	Heater bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	ConversionDelay: 15 * time.Millisecond,
}

// Dev is a handle to an HDC1080.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex
}

// NewI2C returns a Dev after checking the manufacturer and device ids and
// writing the configuration. The Opts can be nil.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: DefaultAddress}, opts: *opts}
	if id, err := d.readWord(regManufacturerID, 0); err != nil {
		return nil, fmt.Errorf("hdc1080: %w", err)
	} else if id != manufacturerTI {
		return nil, fmt.Errorf("hdc1080: unexpected manufacturer id 0x%04x", id)
	}
	if id, err := d.readWord(regDeviceID, 0); err != nil {
		return nil, fmt.Errorf("hdc1080: %w", err)
	} else if id != deviceHDC1080 {
		return nil, fmt.Errorf("hdc1080: unexpected device id 0x%04x", id)
	}
	if err := d.SetHeater(opts.Heater); err != nil {
		return nil, err
	}
	return d, nil
}

// SetHeater turns the heater on or off. The resolution is always 14 bits.
func (d *Dev) SetHeater(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var cfg uint16
	if on {
		cfg |= configHeater
	}
	return d.writeConfig(cfg)
}

// Reset performs a software reset.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeConfig(configReset); err != nil {
		return err
	}
	time.Sleep(15 * time.Millisecond)
	return nil
}

// Sense implements physic.SenseEnv. Pressure is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	e.Temperature = 0
	e.Humidity = 0
	e.Pressure = 0
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readWord(regTemperature, d.opts.ConversionDelay)
	if err != nil {
		return fmt.Errorf("hdc1080: temperature %w", err)
	}
	h, err := d.readWord(regHumidity, d.opts.ConversionDelay)
	if err != nil {
		return fmt.Errorf("hdc1080: humidity %w", err)
	}
	e.Temperature = countToTemperature(t)
	e.Humidity = countToHumidity(h)
	return nil
}

// SenseContinuous implements physic.SenseEnv. It is not supported.
func (d *Dev) SenseContinuous(time.Duration) (<-chan physic.Env, error) {
	return nil, fmt.Errorf("hdc1080: SenseContinuous() is not supported")
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	k, rh := float64(physic.Kelvin), float64(physic.PercentRH)
	e.Temperature = physic.Temperature(165.0 / 65536.0 * k)
	e.Humidity = physic.RelativeHumidity(100.0 / 65536.0 * rh)
	e.Pressure = 0
}

// Halt implements conn.Resource. The sensor sleeps between measurements.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("hdc1080{%s}", d.d)
}

func (d *Dev) writeConfig(cfg uint16) error {
	w := []byte{regConfiguration, 0, 0}
	binary.BigEndian.PutUint16(w[1:], cfg)
	return d.d.Tx(w, nil)
}

// readWord selects reg, waits delay then reads the 16 bit value.
func (d *Dev) readWord(reg byte, delay time.Duration) (uint16, error) {
	if err := d.d.Tx([]byte{reg}, nil); err != nil {
		return 0, err
	}
	time.Sleep(delay)
	var r [2]byte
	if err := d.d.Tx(nil, r[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r[:]), nil
}

func countToTemperature(count uint16) physic.Temperature {
	c := float64(count)/65536.0*165.0 - 40.0
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

func countToHumidity(count uint16) physic.RelativeHumidity {
	return physic.RelativeHumidity(float64(count) / 65536.0 * 100.0 * float64(physic.PercentRH))
}

var _ physic.SenseEnv = &Dev{}
