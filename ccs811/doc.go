// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ccs811 controls an ams CCS811 digital gas sensor over I²C.
//
// The sensor reports an equivalent CO2 concentration (eCO2, in ppm) and a
// total volatile organic compounds concentration (TVOC, in ppb) computed by
// its on-chip algorithm. The driver exposes the register level operations
// (status, error, measurement mode, algorithm result, raw data, baseline and
// environmental compensation) and does not poll the device on its own.
//
// Every operation is a write of a register select frame followed, for reads,
// by a fixed size response. Transport failures are retried locally: the
// channel is reopened and the transaction reissued until Opts.MaxAttempts
// consecutive failures, after which ErrExhaustedRetries is returned and the
// Dev must be recreated.
//
// Out of range eCO2 or TVOC values do not fail a read; they are flagged in the
// returned Result. An out of range error id fails the whole read with an
// InvalidErrorCodeError.
//
// Datasheet
//
//	https://www.sciosense.com/wp-content/uploads/2020/01/SC-001232-DS-2-CCS811B-Datasheet-Revision-2.pdf
package ccs811
