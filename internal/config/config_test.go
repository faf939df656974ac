// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Int("bus", DefaultBus, "")
	cmd.Flags().String("record", "", "")
	cmd.Flags().String("listen", DefaultListen, "")
	cmd.Flags().Bool("debug", false, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func writeConfig(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseFile(t *testing.T) {
	p := writeConfig(t, `
sensor:
  bus: 3
  address: 0x5b
  max_attempts: 4
  baseline: 0x847b
companion:
  kind: none
display:
  kind: ssd1306
  width: 128
  height: 64
loop:
  tick: 500ms
  pause: 5
record:
  path: /tmp/air.csv
`)
	desc := NewAirMonitorDesc()
	if err := desc.Parse(newCmd(t, "--config", p)); err != nil {
		t.Fatal(err)
	}
	want := NewAirMonitorOpt()
	want.Sensor.Bus = 3
	want.Sensor.Address = 0x5b
	want.Sensor.MaxAttempts = 4
	want.Sensor.Baseline = 0x847b
	want.Companion.Kind = CompanionNone
	want.Display.Kind = DisplaySSD1306
	want.Display.Height = 64
	want.Loop.Tick = 500 * time.Millisecond
	want.Loop.Pause = 5
	want.Record.Path = "/tmp/air.csv"
	if diff := cmp.Diff(want, desc.Opt); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestParsePrecedence(t *testing.T) {
	p := writeConfig(t, "sensor:\n  bus: 3\nhttp:\n  listen: \":80\"\n")
	t.Setenv("AIRMONITOR_HTTP_LISTEN", ":9000")
	t.Setenv("AIRMONITOR_SENSOR_MAX_ATTEMPTS", "7")
	desc := NewAirMonitorDesc()
	if err := desc.Parse(newCmd(t, "--config", p, "--bus", "2")); err != nil {
		t.Fatal(err)
	}
	if desc.Opt.Sensor.Bus != 2 {
		t.Errorf("flag should win, got bus %d", desc.Opt.Sensor.Bus)
	}
	if desc.Opt.HTTP.Listen != ":9000" {
		t.Errorf("environment should win, got %q", desc.Opt.HTTP.Listen)
	}
	if desc.Opt.Sensor.MaxAttempts != 7 {
		t.Errorf("got max_attempts %d", desc.Opt.Sensor.MaxAttempts)
	}
}

func TestParseMissingFile(t *testing.T) {
	desc := NewAirMonitorDesc()
	if err := desc.Parse(newCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseInvalid(t *testing.T) {
	p := writeConfig(t, "display:\n  kind: hologram\n")
	desc := NewAirMonitorDesc()
	err := desc.Parse(newCmd(t, "--config", p))
	if err == nil || !strings.Contains(err.Error(), "hologram") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestValidate(t *testing.T) {
	data := []struct {
		name   string
		change func(o *AirMonitorOpt)
		ok     bool
	}{
		{"default", func(o *AirMonitorOpt) {}, true},
		{"periph", func(o *AirMonitorOpt) { o.Sensor.Driver = DriverPeriph }, true},
		{"driver", func(o *AirMonitorOpt) { o.Sensor.Driver = "usb" }, false},
		{"companion", func(o *AirMonitorOpt) { o.Companion.Kind = "bme280" }, false},
		{"attempts", func(o *AirMonitorOpt) { o.Sensor.MaxAttempts = 0 }, false},
		{"address", func(o *AirMonitorOpt) { o.Sensor.Address = 0x80 }, false},
		{"tick", func(o *AirMonitorOpt) { o.Loop.Tick = 0 }, false},
		{"pause", func(o *AirMonitorOpt) { o.Loop.Pause = 0 }, false},
		{"reinit", func(o *AirMonitorOpt) { o.Loop.Reinit = -1 }, false},
		{"influx", func(o *AirMonitorOpt) { o.Influx.URL = "http://localhost:8086" }, false},
		{"influx complete", func(o *AirMonitorOpt) {
			o.Influx = InfluxOpt{URL: "http://localhost:8086", Org: "home", Bucket: "air"}
		}, true},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			o := NewAirMonitorOpt()
			line.change(&o)
			if err := o.Validate(); (err == nil) != line.ok {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestPrintCfg(t *testing.T) {
	p := writeConfig(t, "sensor:\n  bus: 4\n")
	cmd := newCmd(t, "--config", p)
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := PrintCfg(cmd, nil); err != nil {
		t.Fatal(err)
	}
	var got AirMonitorOpt
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Sensor.Bus != 4 || got.Sensor.Address != DefaultAddress {
		t.Errorf("unexpected dump %+v", got.Sensor)
	}
}
