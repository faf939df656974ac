// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// airmonitor shows and records the air quality measured by a CCS811.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/airmonitor/internal/config"
)

var RootCmd = &cobra.Command{
	Use:   config.DefaultAppName,
	Short: "CCS811 air quality monitor",
	Long: `airmonitor polls a CCS811 gas sensor, compensates it with a companion
temperature and humidity sensor, draws the readings on a display and records
them to CSV, InfluxDB, Prometheus and websocket clients.`,
	RunE: RunCmdRunE,
}

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "run the monitor, the default command",
	Long: `run starts the monitor using the configuration found, in order, at:
1. the path given by --config
2. the path in the AIRMONITOR_CONFIG environment variable
3. $HOME/.config/airmonitor/config.yaml, /etc/airmonitor/config.yaml, ./config.yaml
Settings are overridden by AIRMONITOR_* environment variables, then by flags.
`,
	Example: `  airmonitor run --config=/path/to/config.yaml --record air.csv`,
	RunE:    RunCmdRunE,
}

var ConfigCmd = &cobra.Command{
	Use:     "config",
	Short:   "print the effective configuration",
	Example: `  airmonitor config > ~/.config/airmonitor/config.yaml`,
	RunE:    config.PrintCfg,
}

func commonFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "configuration file")
	cmd.Flags().Int("bus", config.DefaultBus, "I²C bus number of the gas sensor")
	cmd.Flags().String("record", "", "CSV file to append readings to")
	cmd.Flags().StringP("listen", "l", config.DefaultListen, "HTTP listen address, disabled when empty")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

func main() {
	for _, cmd := range []*cobra.Command{RootCmd, RunCmd, ConfigCmd} {
		commonFlags(cmd)
	}
	RootCmd.AddCommand(RunCmd, ConfigCmd)
	RootCmd.SilenceUsage = true
	if err := RootCmd.Execute(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
