// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hdc1080 controls a Texas Instruments HDC1080 temperature and
// humidity sensor over I²C.
//
// The sensor is used in separate acquisition mode: temperature and humidity
// are triggered and read one after the other, both at 14 bit resolution.
//
// Datasheet
//
//	https://www.ti.com/lit/ds/symlink/hdc1080.pdf
package hdc1080
