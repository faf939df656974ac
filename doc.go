// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package airmonitor is a container for an air quality monitor built around
// the CCS811 gas sensor.
//
// The ccs811 package is the sensor driver, hdc1080 the temperature and
// humidity companion used for compensation, and ansiscreen a terminal
// display. The airmonitor command wires them together.
package airmonitor
