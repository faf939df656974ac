// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/airmonitor/ansiscreen"
	"github.com/GermanBionicSystems/airmonitor/ccs811"
	"github.com/GermanBionicSystems/airmonitor/internal/companion"
	"github.com/GermanBionicSystems/airmonitor/internal/config"
	"github.com/GermanBionicSystems/airmonitor/internal/dashboard"
	"github.com/GermanBionicSystems/airmonitor/internal/monitor"
	"github.com/GermanBionicSystems/airmonitor/internal/record"
	"github.com/GermanBionicSystems/airmonitor/internal/server"
)

func RunCmdRunE(cmd *cobra.Command, _ []string) error {
	desc := config.NewAirMonitorDesc()
	if err := desc.Parse(cmd); err != nil {
		return err
	}
	if err := desc.PostParse(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, &desc.Opt)
}

func run(ctx context.Context, opt *config.AirMonitorOpt) error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "host init")
	}
	logger := log.StandardLogger()

	env, err := companion.Open(opt.Companion)
	if err != nil {
		return err
	}
	defer func() { _ = env.Halt() }()
	logger.Infof("companion sensor %s", env)

	screen, closeScreen, err := openScreen(opt.Display)
	if err != nil {
		return err
	}
	defer closeScreen()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewBuildInfoCollector())
	metrics := record.NewMetrics(reg)
	latest := &record.Latest{}
	hub := server.NewHub(logger)
	defer hub.Close()
	recs := record.Multi{latest, metrics, hub}
	if opt.Record.Path != "" {
		recs = append(recs, &record.CSV{Path: opt.Record.Path})
	}
	if opt.Influx.URL != "" {
		i := record.NewInflux(opt.Influx.URL, opt.Influx.Token, opt.Influx.Org, opt.Influx.Bucket)
		defer i.Close()
		recs = append(recs, i)
	}

	m := monitor.New(sensorOpener(opt.Sensor, logger), env, screen, recs, metrics, &monitor.Opts{
		Tick:        opt.Loop.Tick,
		Pause:       opt.Loop.Pause,
		Reinit:      opt.Loop.Reinit,
		MeasMode:    ccs811.MeasMode(opt.Sensor.MeasMode),
		Baseline:    ccs811.Baseline(opt.Sensor.Baseline),
		SplashDelay: monitor.DefaultOpts.SplashDelay,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Run(gctx)
	})
	if opt.HTTP.Listen != "" {
		h := server.New(latest, hub, reg, logger)
		g.Go(func() error {
			return server.Serve(gctx, opt.HTTP.Listen, h, logger)
		})
	}
	return g.Wait()
}

// sensorOpener returns the gas sensor constructor for the configured driver.
func sensorOpener(o config.SensorOpt, logger log.FieldLogger) monitor.OpenFunc {
	opts := ccs811.DefaultOpts
	opts.MaxAttempts = o.MaxAttempts
	opts.Logger = logger
	var opener ccs811.Opener = ccs811.Devfs{}
	if o.Driver == config.DriverPeriph {
		opener = ccs811.BusOpener{}
	}
	return func() (monitor.Sensor, error) {
		return ccs811.New(opener, o.Bus, o.Address, &opts)
	}
}

// openScreen returns the dashboard for the configured display, or nil.
func openScreen(o config.DisplayOpt) (monitor.Screen, func(), error) {
	var d display.Drawer
	release := func() {}
	switch o.Kind {
	case config.DisplayNone:
		return nil, release, nil
	case config.DisplayTerminal:
		d = ansiscreen.New(&ansiscreen.Opts{W: o.Width, H: o.Height})
	case config.DisplaySSD1306:
		b, err := i2creg.Open(strconv.Itoa(o.Bus))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "display: open i2c bus %d", o.Bus)
		}
		opts := ssd1306.DefaultOpts
		opts.W, opts.H = o.Width, o.Height
		dev, err := ssd1306.NewI2C(b, &opts)
		if err != nil {
			_ = b.Close()
			return nil, nil, errors.Wrap(err, "display")
		}
		d = dev
		release = closer(b)
	default:
		return nil, nil, errors.Errorf("unknown display %q", o.Kind)
	}
	dash, err := dashboard.New(d)
	if err != nil {
		release()
		return nil, nil, err
	}
	return dash, func() {
		_ = d.Halt()
		release()
	}, nil
}

func closer(b i2c.BusCloser) func() {
	return func() { _ = b.Close() }
}
