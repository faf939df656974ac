// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import (
	"errors"
	"fmt"
)

// ErrExhaustedRetries is returned once the attempt counter reached
// Opts.MaxAttempts. No further transaction is issued by the Dev; close it and
// create a new one.
var ErrExhaustedRetries = errors.New("ccs811: exceeded maximum number of attempts for reconnection")

// ErrCompensationRange is returned when a temperature or humidity value cannot
// be represented in the ENV_DATA register format.
var ErrCompensationRange = errors.New("ccs811: compensation value out of range")

var errClosed = errors.New("ccs811: device is closed")

// TransportError is returned when the device node cannot be opened, the
// address cannot be bound or the device was closed.
type TransportError struct {
	Op   string
	Bus  int
	Addr uint16
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ccs811: %s bus %d addr 0x%02x: %v", e.Op, e.Bus, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportFault reports whether err belongs to the transport family, in
// which case the only recovery is to recreate the Dev.
func IsTransportFault(err error) bool {
	var te *TransportError
	return errors.Is(err, ErrExhaustedRetries) || errors.As(err, &te)
}

// HardwareIDError is returned by CheckHardwareID when the device at the
// address is not a CCS811.
type HardwareIDError struct {
	Got  byte
	Want byte
}

func (e *HardwareIDError) Error() string {
	return fmt.Sprintf("ccs811: hardware id 0x%02x, expected 0x%02x", e.Got, e.Want)
}

// InvalidErrorCodeError is returned when the device reports an error id
// outside of the known ErrorCode values. The whole algorithm result is
// discarded in that case.
type InvalidErrorCodeError struct {
	Code byte
}

func (e *InvalidErrorCodeError) Error() string {
	return fmt.Sprintf("ccs811: invalid error id %d", e.Code)
}

// InvalidMeasurementError describes a single out of range field in an
// otherwise usable Result.
type InvalidMeasurementError struct {
	Field string
	Value uint16
	Max   uint16
}

func (e *InvalidMeasurementError) Error() string {
	return fmt.Sprintf("ccs811: invalid %s value %d (max %d)", e.Field, e.Value, e.Max)
}
