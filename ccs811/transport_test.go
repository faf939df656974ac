// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

var errRemoteIO = errors.New("remote I/O error")

// flakyOpener hands out connections whose first failures transactions fail.
// Every read returns the hardware id.
type flakyOpener struct {
	failures int
	openErr  error

	calls  int
	opens  int
	closes int
}

func (o *flakyOpener) Open(int, uint16) (Conn, error) {
	o.opens++
	if o.openErr != nil {
		return nil, o.openErr
	}
	return &flakyConn{o: o}, nil
}

func (o *flakyOpener) tx() error {
	o.calls++
	if o.calls <= o.failures {
		return errRemoteIO
	}
	return nil
}

type flakyConn struct {
	o *flakyOpener
}

func (c *flakyConn) Write([]byte) error {
	return c.o.tx()
}

func (c *flakyConn) Read(b []byte) error {
	if err := c.o.tx(); err != nil {
		return err
	}
	for i := range b {
		b[i] = ExpectedHardwareID
	}
	return nil
}

func (c *flakyConn) Close() error {
	c.o.closes++
	return nil
}

func newFlaky(t *testing.T, o *flakyOpener, limit int) *Dev {
	opts, _ := testOpts()
	opts.MaxAttempts = limit
	d, err := New(o, 1, DefaultAddress, opts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRetryRecovers(t *testing.T) {
	const limit = 10
	for n := 1; n <= limit; n++ {
		o := &flakyOpener{failures: n - 1}
		d := newFlaky(t, o, limit)
		// The write select absorbs the failures, the read succeeds first time.
		id, err := d.HardwareID()
		if err != nil {
			t.Fatalf("success at attempt %d: %v", n, err)
		}
		if id != ExpectedHardwareID {
			t.Errorf("id 0x%x", id)
		}
		if d.attempts != 0 {
			t.Errorf("attempt counter %d after success", d.attempts)
		}
		if o.calls != n+1 {
			t.Errorf("%d transactions, expected %d", o.calls, n+1)
		}
		if o.opens != n {
			t.Errorf("%d opens, expected %d", o.opens, n)
		}
		if o.closes != n-1 {
			t.Errorf("%d closes, expected %d", o.closes, n-1)
		}
	}
}

func TestRetryExhausted(t *testing.T) {
	const limit = 10
	o := &flakyOpener{failures: 1000}
	d := newFlaky(t, o, limit)
	if _, err := d.ReadStatus(); !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
	if o.calls != limit {
		t.Errorf("%d transactions, expected %d", o.calls, limit)
	}
	if !IsTransportFault(ErrExhaustedRetries) {
		t.Error("ErrExhaustedRetries is a transport fault")
	}
	// Once exhausted, nothing reaches the transport anymore.
	calls := o.calls
	if err := d.SetBaseline(1); !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
	if o.calls != calls {
		t.Errorf("transport used after exhaustion")
	}
}

func TestRetryCounterAtMax(t *testing.T) {
	for _, limit := range []int{1, 3, 10} {
		for _, attempts := range []int{limit, limit + 1, 2 * limit} {
			o := &flakyOpener{}
			d := newFlaky(t, o, limit)
			d.attempts = attempts
			if _, err := d.ReadBaseline(); !errors.Is(err, ErrExhaustedRetries) {
				t.Fatalf("limit %d attempts %d: got %v", limit, attempts, err)
			}
			if err := d.write([]byte{regStatus}); !errors.Is(err, ErrExhaustedRetries) {
				t.Fatalf("limit %d attempts %d: got %v", limit, attempts, err)
			}
			if err := d.read(make([]byte, 1)); !errors.Is(err, ErrExhaustedRetries) {
				t.Fatalf("limit %d attempts %d: got %v", limit, attempts, err)
			}
			if o.calls != 0 {
				t.Errorf("limit %d attempts %d: %d transactions issued", limit, attempts, o.calls)
			}
		}
	}
}

func TestRetryCounterShared(t *testing.T) {
	// A success resets the counter: two failed writes then three failed reads
	// stay under 4 attempts.
	o := &flakyOpener{failures: 2}
	d := newFlaky(t, o, 4)
	if err := d.write([]byte{regStatus}); err != nil {
		t.Fatal(err)
	}
	o.calls, o.failures = 0, 3
	if err := d.read(make([]byte, 1)); err != nil {
		t.Fatal(err)
	}
	// Without a success, failures of both directions add up.
	o.calls, o.failures = 0, 1000
	d.attempts = 0
	_ = d.write([]byte{regStatus})
	if d.attempts != 4 {
		t.Fatalf("counter %d", d.attempts)
	}
	if err := d.read(make([]byte, 1)); !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("got %v", err)
	}
}

func TestReconnectFailure(t *testing.T) {
	o := &flakyOpener{failures: 1}
	d := newFlaky(t, o, 10)
	o.openErr = errors.New("no such file or directory")
	_, err := d.ReadStatus()
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Op != "open" || te.Bus != 1 || te.Addr != DefaultAddress {
		t.Errorf("unexpected %#v", te)
	}
	if !IsTransportFault(err) {
		t.Error("reconnect failure is a transport fault")
	}
}

func TestOpenFailure(t *testing.T) {
	opts, _ := testOpts()
	_, err := New(&flakyOpener{openErr: errors.New("permission denied")}, 3, 0x5b, opts)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !strings.Contains(err.Error(), "bus 3 addr 0x5b") {
		t.Errorf("unexpected message %q", err)
	}
}

func TestClose(t *testing.T) {
	o := &flakyOpener{}
	d := newFlaky(t, o, 10)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if o.closes != 1 {
		t.Errorf("%d closes", o.closes)
	}
	if _, err := d.ReadStatus(); !errors.Is(err, errClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if o.calls != 0 || o.opens != 1 {
		t.Errorf("closed device used the transport")
	}
}

func TestReconnectLogged(t *testing.T) {
	o := &flakyOpener{failures: 2}
	opts, hook := testOpts()
	d, err := New(o, 1, DefaultAddress, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadRaw(); err != nil {
		t.Fatal(err)
	}
	var infos, errs int
	for _, e := range hook.AllEntries() {
		switch e.Level {
		case logrus.InfoLevel:
			infos++
		case logrus.ErrorLevel:
			errs++
		}
	}
	// One initial open plus two reconnects.
	if infos != 3 || errs != 2 {
		t.Errorf("logged %d info and %d error entries", infos, errs)
	}
}
