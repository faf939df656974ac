// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import (
	"errors"
	"io"
	"strconv"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Conn is a channel to a single device, already bound to its address.
type Conn interface {
	// Write sends b to the device in one transaction.
	Write(b []byte) error
	// Read fills b from the device in one transaction.
	Read(b []byte) error
	Close() error
}

// Opener opens a Conn to the device at addr on the I²C bus number bus.
type Opener interface {
	Open(bus int, addr uint16) (Conn, error)
}

// BusOpener opens the bus through the periph i2creg registry. host.Init()
// must have been called first.
type BusOpener struct{}

// Open implements Opener.
func (BusOpener) Open(bus int, addr uint16) (Conn, error) {
	b, err := i2creg.Open(strconv.Itoa(bus))
	if err != nil {
		return nil, &TransportError{Op: "open", Bus: bus, Addr: addr, Err: err}
	}
	return &busConn{d: &i2c.Dev{Bus: b, Addr: addr}, c: b}, nil
}

// sharedBus hands out connections on a bus owned by the caller.
type sharedBus struct {
	b i2c.Bus
}

func (s sharedBus) Open(_ int, addr uint16) (Conn, error) {
	return &busConn{d: &i2c.Dev{Bus: s.b, Addr: addr}}, nil
}

type busConn struct {
	d *i2c.Dev
	// c is nil when the bus belongs to the caller.
	c io.Closer
}

func (b *busConn) Write(p []byte) error {
	return b.d.Tx(p, nil)
}

func (b *busConn) Read(p []byte) error {
	return b.d.Tx(nil, p)
}

func (b *busConn) Close() error {
	if b.c == nil {
		return nil
	}
	return b.c.Close()
}

// connect runs the full open sequence and installs the new Conn in place of
// the old one. d.mu must be held.
func (d *Dev) connect() error {
	if d.c != nil {
		_ = d.c.Close()
		d.c = nil
	}
	c, err := d.opener.Open(d.bus, d.addr)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			err = &TransportError{Op: "open", Bus: d.bus, Addr: d.addr, Err: err}
		}
		return err
	}
	time.Sleep(d.opts.SettleDelay)
	d.c = c
	time.Sleep(d.opts.SettleDelay)
	d.opts.Logger.Infof("ccs811: init/reinit connection on bus %d addr 0x%02x", d.bus, d.addr)
	return nil
}

func (d *Dev) write(b []byte) error {
	return d.retry("write", func(c Conn) error { return c.Write(b) })
}

func (d *Dev) read(b []byte) error {
	return d.retry("read", func(c Conn) error { return c.Read(b) })
}

// retry issues f until it succeeds, reopening the channel after every
// failure. The attempt counter is shared by reads and writes and only reset
// by a successful transaction.
func (d *Dev) retry(op string, f func(c Conn) error) error {
	if d.closed {
		return &TransportError{Op: op, Bus: d.bus, Addr: d.addr, Err: errClosed}
	}
	for {
		if d.attempts >= d.opts.MaxAttempts {
			d.opts.Logger.Error("ccs811: exceeded maximum number of attempts for reconnection")
			return ErrExhaustedRetries
		}
		var err error
		if d.c == nil {
			err = errClosed
		} else {
			err = f(d.c)
		}
		if err == nil {
			d.attempts = 0
			return nil
		}
		d.opts.Logger.WithError(err).Errorf("ccs811: failed to %s the sensor", op)
		d.attempts++
		if err := d.connect(); err != nil {
			return err
		}
	}
}
