// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package record stores and publishes air quality readings.
package record

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/airmonitor/ccs811"
)

// Reading is one sample of the air monitor: the gas sensor algorithm result
// and the ambient conditions used to compensate it. AmbientValid is false
// when Temperature and Humidity are stand-in values rather than measurements.
type Reading struct {
	Time         time.Time `json:"time"`
	ECO2         uint16    `json:"eco2"`
	ECO2Valid    bool      `json:"eco2_valid"`
	TVOC         uint16    `json:"tvoc"`
	TVOCValid    bool      `json:"tvoc_valid"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	AmbientValid bool      `json:"ambient_valid"`
	Baseline     uint16    `json:"baseline"`
}

// Ambient is the compensation input of a reading.
type Ambient struct {
	Temperature float64
	Humidity    float64
	// Valid is false when the companion sensor failed and the power-on
	// values were used instead.
	Valid bool
}

// FromResult builds a Reading from a decoded algorithm result.
func FromResult(now time.Time, r *ccs811.Result, a Ambient, b ccs811.Baseline) Reading {
	return Reading{
		Time:         now,
		ECO2:         uint16(r.ECO2),
		ECO2Valid:    r.ECO2Valid,
		TVOC:         uint16(r.TVOC),
		TVOCValid:    r.TVOCValid,
		Temperature:  a.Temperature,
		Humidity:     a.Humidity,
		AmbientValid: a.Valid,
		Baseline:     uint16(b),
	}
}

// Invalid is the reading shown when the sensor reports an unknown error code.
func Invalid(now time.Time, a Ambient) Reading {
	return Reading{Time: now, Temperature: a.Temperature, Humidity: a.Humidity, AmbientValid: a.Valid}
}

func (r Reading) String() string {
	t, h := "ERROR", "ERROR"
	if r.AmbientValid {
		t, h = fmt.Sprintf("%.2f°C", r.Temperature), fmt.Sprintf("%.2f%%", r.Humidity)
	}
	return fmt.Sprintf("eCO2=%s TVOC=%s T=%s RH=%s", field(r.ECO2, r.ECO2Valid, "ppm"), field(r.TVOC, r.TVOCValid, "ppb"), t, h)
}

func field(v uint16, valid bool, unit string) string {
	if !valid {
		return "ERROR"
	}
	return fmt.Sprintf("%d%s", v, unit)
}

// Recorder consumes readings.
type Recorder interface {
	Record(ctx context.Context, r Reading) error
}

// Multi forwards every reading to all its recorders and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, r Reading) error {
	var errs []error
	for _, rec := range m {
		if err := rec.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest keeps the most recent reading.
type Latest struct {
	mu sync.RWMutex
	r  Reading
	ok bool
}

func (l *Latest) Record(_ context.Context, r Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r, l.ok = r, true
	return nil
}

// Get returns the last reading and whether one was recorded yet.
func (l *Latest) Get() (Reading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r, l.ok
}
