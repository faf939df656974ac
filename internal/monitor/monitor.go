// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor runs the air monitor polling loop.
//
// Every tick the screen is redrawn; every Pause ticks the companion sensor
// is read, the gas sensor is compensated and polled, and a valid result is
// recorded. The gas sensor is fully re-initialized every Reinit ticks and
// after any transport fault.
package monitor

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/airmonitor/ccs811"
	"github.com/GermanBionicSystems/airmonitor/internal/companion"
	"github.com/GermanBionicSystems/airmonitor/internal/record"
)

// Sensor is the part of *ccs811.Dev the loop uses.
type Sensor interface {
	CheckHardwareID() error
	Configure(m ccs811.MeasMode) error
	ReadMeasMode() (ccs811.MeasMode, error)
	ReadStatus() (ccs811.Status, error)
	CheckError(s ccs811.Status) (ccs811.ErrorCode, bool, error)
	ReadAlgorithmResult() (*ccs811.Result, error)
	ReadBaseline() (ccs811.Baseline, error)
	SetBaseline(v ccs811.Baseline) error
	SetCompensation(t physic.Temperature, h physic.RelativeHumidity) error
	Close() error
}

// OpenFunc creates a new gas sensor driver.
type OpenFunc func() (Sensor, error)

// Environment reports the ambient conditions.
type Environment interface {
	Sense(e *physic.Env) error
}

// Screen shows the loop state.
type Screen interface {
	Boot(ok bool) error
	HardwareError() error
	Info(m ccs811.MeasMode, s ccs811.Status) error
	Frame(now time.Time, blink bool, r record.Reading) error
}

// Stats counts driver re-creations.
type Stats interface {
	SensorReset(reason string)
}

// Reasons passed to Stats.SensorReset.
const (
	ReasonScheduled = "scheduled"
	ReasonTransport = "transport"
)

// Opts configures the loop.
type Opts struct {
	Tick   time.Duration
	Pause  int
	Reinit int
	// MeasMode is written at every initialization.
	MeasMode ccs811.MeasMode
	// Baseline is restored at every initialization when non zero.
	Baseline ccs811.Baseline
	// SplashDelay is how long the initialization screen is shown.
	SplashDelay time.Duration
}

// DefaultOpts matches the sample setup: one screen update per second, a
// sensor poll every 10s and a re-initialization every hour.
var DefaultOpts = Opts{
	Tick:        time.Second,
	Pause:       10,
	Reinit:      3600,
	MeasMode:    ccs811.NewMeasMode(ccs811.DriveMode10s, false, false),
	SplashDelay: 2 * time.Second,
}

// Monitor is the polling loop state. It is not safe for concurrent use.
type Monitor struct {
	open   OpenFunc
	env    Environment
	screen Screen
	rec    record.Recorder
	stats  Stats
	opts   Opts
	log    logrus.FieldLogger

	dev     Sensor
	cnt     int
	current record.Reading
	sleep   func(ctx context.Context, d time.Duration)
}

// New returns a Monitor. screen, rec and stats may be nil.
func New(open OpenFunc, env Environment, screen Screen, rec record.Recorder, stats Stats, opts *Opts, log logrus.FieldLogger) *Monitor {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Pause < 1 {
		o.Pause = 1
	}
	if o.Reinit < 1 {
		o.Reinit = 1
	}
	if env == nil {
		env = companion.Default
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Monitor{
		open:    open,
		env:     env,
		screen:  screen,
		rec:     rec,
		stats:   stats,
		opts:    o,
		log:     log,
		current: record.Reading{ECO2Valid: true, TVOCValid: true, AmbientValid: true},
		sleep:   sleepCtx,
	}
}

// Current returns the reading on screen.
func (m *Monitor) Current() record.Reading {
	return m.current
}

// Run loops until ctx is canceled or a fatal error occurs. A hardware id
// mismatch or a driver that cannot be created at all is fatal.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.Close()
	t := time.NewTicker(m.opts.Tick)
	defer t.Stop()
	for {
		if err := m.Step(ctx, time.Now()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Step runs one tick of the loop.
func (m *Monitor) Step(ctx context.Context, now time.Time) error {
	if m.cnt == 0 || m.dev == nil {
		if err := m.init(ctx); err != nil {
			return err
		}
	}
	m.cnt = (m.cnt + 1) % m.opts.Reinit
	if m.screen != nil {
		if err := m.screen.Frame(now, m.cnt%2 != 0, m.current); err != nil {
			m.log.WithError(err).Warn("display")
		}
	}
	if m.dev == nil || m.cnt%m.opts.Pause != 0 {
		return nil
	}
	m.poll(ctx, now)
	return nil
}

// Close releases the gas sensor driver.
func (m *Monitor) Close() error {
	if m.dev == nil {
		return nil
	}
	err := m.dev.Close()
	m.dev = nil
	return err
}

func (m *Monitor) init(ctx context.Context) error {
	if m.dev != nil {
		_ = m.Close()
		m.reset(ReasonScheduled)
	}
	if m.screen != nil {
		_ = m.screen.Boot(false)
	}
	dev, err := m.open()
	if err != nil {
		return pkgerrors.Wrap(err, "monitor: create sensor driver")
	}
	if err := dev.CheckHardwareID(); err != nil {
		_ = dev.Close()
		var hw *ccs811.HardwareIDError
		if errors.As(err, &hw) {
			if m.screen != nil {
				_ = m.screen.HardwareError()
			}
			return pkgerrors.Wrap(err, "monitor")
		}
		return m.initFailed(err)
	}
	if m.screen != nil {
		_ = m.screen.Boot(true)
	}
	if err := dev.Configure(m.opts.MeasMode); err != nil {
		_ = dev.Close()
		return m.initFailed(err)
	}
	if m.opts.Baseline != 0 {
		if err := dev.SetBaseline(m.opts.Baseline); err != nil {
			_ = dev.Close()
			return m.initFailed(err)
		}
		if b, err := dev.ReadBaseline(); err == nil {
			m.log.Infof("baseline restored to %s", b)
		}
	}
	mode, err := dev.ReadMeasMode()
	if err != nil {
		_ = dev.Close()
		return m.initFailed(err)
	}
	status, err := dev.ReadStatus()
	if err != nil {
		_ = dev.Close()
		return m.initFailed(err)
	}
	m.log.Debugf("MEAS_MODE: %s STATUS: %s", mode, status)
	if m.screen != nil {
		_ = m.screen.Info(mode, status)
	}
	m.sleep(ctx, m.opts.SplashDelay)
	m.dev = dev
	m.log.Info("reset device")
	return nil
}

// initFailed keeps the loop alive after a transport fault during
// initialization; the next tick tries again.
func (m *Monitor) initFailed(err error) error {
	if isDecodeFault(err) {
		return pkgerrors.Wrap(err, "monitor: initialize sensor")
	}
	m.log.WithError(err).Error("sensor initialization failed")
	m.reset(ReasonTransport)
	return nil
}

func (m *Monitor) poll(ctx context.Context, now time.Time) {
	var e physic.Env
	measured := true
	if err := m.env.Sense(&e); err != nil {
		m.log.WithError(err).Warn("companion sensor, using power-on compensation")
		_ = companion.Default.Sense(&e)
		measured = false
	}
	ambient := record.Ambient{Temperature: companion.Celsius(&e), Humidity: companion.Percent(&e), Valid: measured}
	if err := m.dev.SetCompensation(e.Temperature, e.Humidity); err != nil {
		if m.fault(err) {
			return
		}
		m.log.WithError(err).Warn("compensation not applied")
	}

	status, err := m.dev.ReadStatus()
	if err != nil {
		m.fault(err)
		return
	}
	m.log.Debugf("STATUS: %s", status)
	code, set, err := m.dev.CheckError(status)
	if err != nil {
		if m.fault(err) {
			return
		}
		m.log.WithError(err).Error("sensor error")
	} else if set {
		m.log.Errorf("ERROR:%s", code)
	}
	if !ccs811.CheckDataReady(status) {
		m.log.Info("no new samples are ready")
		return
	}
	res, err := m.dev.ReadAlgorithmResult()
	if err != nil {
		if !m.fault(err) {
			m.log.WithError(err).Error("algorithm result")
			m.current = record.Invalid(now, ambient)
		}
		return
	}
	baseline, err := m.dev.ReadBaseline()
	if err != nil {
		m.fault(err)
		return
	}
	m.current = record.FromResult(now, res, ambient, baseline)
	m.log.Debug(m.current)
	if m.rec != nil {
		if err := m.rec.Record(ctx, m.current); err != nil {
			m.log.WithError(err).Warn("record")
		}
	}
}

// fault handles err from the sensor and reports whether it was a transport
// fault. Transport faults drop the driver; a new one is created and
// initialized on the next tick.
func (m *Monitor) fault(err error) bool {
	if isDecodeFault(err) {
		return false
	}
	m.log.WithError(err).Error("sensor transport failed, re-creating driver")
	_ = m.Close()
	m.reset(ReasonTransport)
	return true
}

// isDecodeFault is true for errors about the data rather than the bus. Any
// other error is handled like a transport fault.
func isDecodeFault(err error) bool {
	var inv *ccs811.InvalidErrorCodeError
	return errors.As(err, &inv) || errors.Is(err, ccs811.ErrCompensationRange)
}

func (m *Monitor) reset(reason string) {
	m.cnt = 0
	if m.stats != nil {
		m.stats.SensorReset(reason)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
