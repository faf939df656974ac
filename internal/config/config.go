// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the air monitor settings from file, environment and
// command line.
package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const DefaultAppName = "airmonitor"
const DefaultConfigName = "config"

const (
	DefaultBus         = 1
	DefaultAddress     = 0x5A
	DefaultMaxAttempts = 10
	// DefaultMeasMode is drive mode 2 (one sample every 10s), no interrupts.
	DefaultMeasMode = 0x20
	DefaultTick     = time.Second
	DefaultPause    = 10
	DefaultReinit   = 3600
	DefaultListen   = ""
)

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"

// Drivers and companion or display kinds accepted in the configuration.
const (
	DriverDevfs  = "devfs"
	DriverPeriph = "periph"

	CompanionHDC1080 = "hdc1080"
	CompanionDHT22   = "dht22"
	CompanionNone    = "none"

	DisplayTerminal = "terminal"
	DisplaySSD1306  = "ssd1306"
	DisplayNone     = "none"
)

type SensorOpt struct {
	Bus         int    `yaml:"bus" mapstructure:"bus"`
	Address     uint16 `yaml:"address" mapstructure:"address"`
	Driver      string `yaml:"driver" mapstructure:"driver"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	MeasMode    uint8  `yaml:"meas_mode" mapstructure:"meas_mode"`
	// Baseline is restored after every initialization when non zero.
	Baseline uint16 `yaml:"baseline" mapstructure:"baseline"`
}

type CompanionOpt struct {
	Kind string `yaml:"kind" mapstructure:"kind"`
	Bus  int    `yaml:"bus" mapstructure:"bus"`
	Pin  string `yaml:"pin" mapstructure:"pin"`
}

type DisplayOpt struct {
	Kind   string `yaml:"kind" mapstructure:"kind"`
	Width  int    `yaml:"width" mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
	Bus    int    `yaml:"bus" mapstructure:"bus"`
}

type LoopOpt struct {
	Tick   time.Duration `yaml:"tick" mapstructure:"tick"`
	Pause  int           `yaml:"pause" mapstructure:"pause"`
	Reinit int           `yaml:"reinit" mapstructure:"reinit"`
}

type RecordOpt struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type HTTPOpt struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

type InfluxOpt struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Token  string `yaml:"token" mapstructure:"token"`
	Org    string `yaml:"org" mapstructure:"org"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
}

type LogOpt struct {
	Debug bool   `yaml:"debug" mapstructure:"debug"`
	File  string `yaml:"file" mapstructure:"file"`
}

type AirMonitorOpt struct {
	Sensor    SensorOpt    `yaml:"sensor" mapstructure:"sensor"`
	Companion CompanionOpt `yaml:"companion" mapstructure:"companion"`
	Display   DisplayOpt   `yaml:"display" mapstructure:"display"`
	Loop      LoopOpt      `yaml:"loop" mapstructure:"loop"`
	Record    RecordOpt    `yaml:"record" mapstructure:"record"`
	HTTP      HTTPOpt      `yaml:"http" mapstructure:"http"`
	Influx    InfluxOpt    `yaml:"influx" mapstructure:"influx"`
	Log       LogOpt       `yaml:"log" mapstructure:"log"`
}

type AirMonitorDesc struct {
	Opt   AirMonitorOpt
	Viper *viper.Viper
}

func NewAirMonitorDesc() AirMonitorDesc {
	return AirMonitorDesc{
		Opt:   NewAirMonitorOpt(),
		Viper: nil,
	}
}

func NewAirMonitorOpt() AirMonitorOpt {
	return AirMonitorOpt{
		Sensor: SensorOpt{
			Bus:         DefaultBus,
			Address:     DefaultAddress,
			Driver:      DriverDevfs,
			MaxAttempts: DefaultMaxAttempts,
			MeasMode:    DefaultMeasMode,
		},
		Companion: CompanionOpt{
			Kind: CompanionHDC1080,
			Bus:  DefaultBus,
			Pin:  "GPIO4",
		},
		Display: DisplayOpt{
			Kind:   DisplayTerminal,
			Width:  128,
			Height: 160,
			Bus:    DefaultBus,
		},
		Loop: LoopOpt{
			Tick:   DefaultTick,
			Pause:  DefaultPause,
			Reinit: DefaultReinit,
		},
		HTTP: HTTPOpt{Listen: DefaultListen},
	}
}

func setDefaults(v *viper.Viper) {
	o := NewAirMonitorOpt()
	v.SetDefault("sensor.bus", o.Sensor.Bus)
	v.SetDefault("sensor.address", o.Sensor.Address)
	v.SetDefault("sensor.driver", o.Sensor.Driver)
	v.SetDefault("sensor.max_attempts", o.Sensor.MaxAttempts)
	v.SetDefault("sensor.meas_mode", o.Sensor.MeasMode)
	v.SetDefault("sensor.baseline", o.Sensor.Baseline)
	v.SetDefault("companion.kind", o.Companion.Kind)
	v.SetDefault("companion.bus", o.Companion.Bus)
	v.SetDefault("companion.pin", o.Companion.Pin)
	v.SetDefault("display.kind", o.Display.Kind)
	v.SetDefault("display.width", o.Display.Width)
	v.SetDefault("display.height", o.Display.Height)
	v.SetDefault("display.bus", o.Display.Bus)
	v.SetDefault("loop.tick", o.Loop.Tick)
	v.SetDefault("loop.pause", o.Loop.Pause)
	v.SetDefault("loop.reinit", o.Loop.Reinit)
	v.SetDefault("record.path", "")
	v.SetDefault("http.listen", o.HTTP.Listen)
	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")
}

// Parse reads .env, the configuration file, AIRMONITOR_* environment
// variables and the command flags, in increasing order of precedence.
func (o *AirMonitorDesc) Parse(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil {
		log.Debugln("no .env file loaded:", err)
	}

	vipCfg := viper.New()
	setDefaults(vipCfg)

	if configFileCmd, err := cmd.Flags().GetString("config"); err == nil && configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
	} else if configFileEnv := os.Getenv("AIRMONITOR_CONFIG"); configFileEnv != "" {
		vipCfg.SetConfigFile(configFileEnv)
	} else {
		vipCfg.SetConfigName(DefaultConfigName)
		vipCfg.SetConfigType("yaml")
		vipCfg.AddConfigPath(DefaultConfigSearchPath0)
		vipCfg.AddConfigPath(DefaultConfigSearchPath1)
		vipCfg.AddConfigPath(DefaultConfigSearchPath2)
	}

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	for key, flag := range map[string]string{
		"sensor.bus":  "bus",
		"record.path": "record",
		"http.listen": "listen",
		"log.debug":   "debug",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = vipCfg.BindPFlag(key, f)
		}
	}

	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config")
		}
		log.Debugln(err)
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	o.Viper = vipCfg
	return o.Opt.Validate()
}

// Validate reports settings the air monitor cannot run with.
func (o *AirMonitorOpt) Validate() error {
	switch o.Sensor.Driver {
	case DriverDevfs, DriverPeriph:
	default:
		return errors.Errorf("unknown sensor driver %q", o.Sensor.Driver)
	}
	switch o.Companion.Kind {
	case CompanionHDC1080, CompanionDHT22, CompanionNone:
	default:
		return errors.Errorf("unknown companion sensor %q", o.Companion.Kind)
	}
	switch o.Display.Kind {
	case DisplayTerminal, DisplaySSD1306, DisplayNone:
	default:
		return errors.Errorf("unknown display %q", o.Display.Kind)
	}
	if o.Sensor.MaxAttempts < 1 {
		return errors.Errorf("sensor.max_attempts must be positive, got %d", o.Sensor.MaxAttempts)
	}
	if o.Sensor.Address > 0x7F {
		return errors.Errorf("sensor.address 0x%x is not a 7 bit address", o.Sensor.Address)
	}
	if o.Loop.Tick <= 0 {
		return errors.Errorf("loop.tick must be positive, got %s", o.Loop.Tick)
	}
	if o.Loop.Pause < 1 || o.Loop.Reinit < 1 {
		return errors.Errorf("loop.pause and loop.reinit must be positive, got %d and %d", o.Loop.Pause, o.Loop.Reinit)
	}
	if o.Influx.URL != "" && (o.Influx.Org == "" || o.Influx.Bucket == "") {
		return errors.New("influx.org and influx.bucket are required with influx.url")
	}
	return nil
}

// PostParse configures the standard logger.
func (o *AirMonitorDesc) PostParse() error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if o.Opt.Log.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if o.Opt.Log.File != "" {
		f, err := os.OpenFile(o.Opt.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		log.SetOutput(f)
	}
	return nil
}

// Dump returns the effective configuration as YAML.
func (o *AirMonitorDesc) Dump() (string, error) {
	b, err := yaml.Marshal(o.Opt)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config")
	}
	return string(b), nil
}

// PrintCfg is the RunE of the config command.
func PrintCfg(cmd *cobra.Command, _ []string) error {
	desc := NewAirMonitorDesc()
	if err := desc.Parse(cmd); err != nil {
		log.Errorln(err)
		return err
	}
	s, err := desc.Dump()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), s)
	return err
}
