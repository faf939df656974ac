// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package record

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the last reading and the sensor health as Prometheus
// metrics.
type Metrics struct {
	eco2        prometheus.Gauge
	tvoc        prometheus.Gauge
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	baseline    prometheus.Gauge
	invalid     *prometheus.CounterVec
	resets      *prometheus.CounterVec
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "air", Name: name, Help: help})
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eco2:        newGauge("eco2_ppm", "Equivalent CO2 (units: ppm)"),
		tvoc:        newGauge("tvoc_ppb", "Total volatile organic compounds (units: ppb)"),
		temperature: newGauge("temperature_celsius", "Compensation temperature (units: degrees Celsius)"),
		humidity:    newGauge("humidity_percent", "Compensation relative humidity (units: %)"),
		baseline:    newGauge("ccs811_baseline", "Raw baseline of the gas sensor algorithm"),
		invalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "air",
			Name:      "invalid_readings_total",
			Help:      "Readings rejected as out of range, by field",
		}, []string{"field"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "air",
			Name:      "sensor_resets_total",
			Help:      "Gas sensor driver re-creations, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.eco2, m.tvoc, m.temperature, m.humidity, m.baseline, m.invalid, m.resets)
	return m
}

func (m *Metrics) Record(_ context.Context, r Reading) error {
	if r.ECO2Valid {
		m.eco2.Set(float64(r.ECO2))
	} else {
		m.invalid.WithLabelValues("eco2").Inc()
	}
	if r.TVOCValid {
		m.tvoc.Set(float64(r.TVOC))
	} else {
		m.invalid.WithLabelValues("tvoc").Inc()
	}
	if r.AmbientValid {
		m.temperature.Set(r.Temperature)
		m.humidity.Set(r.Humidity)
	} else {
		m.invalid.WithLabelValues("ambient").Inc()
	}
	m.baseline.Set(float64(r.Baseline))
	return nil
}

// SensorReset counts a driver re-creation.
func (m *Metrics) SensorReset(reason string) {
	m.resets.WithLabelValues(reason).Inc()
}
