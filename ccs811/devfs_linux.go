// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package ccs811

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl binding a file descriptor to a 7 bit address.
const i2cSlave = 0x0703

// Devfs opens the Linux i2c-dev character device and binds it with the
// I2C_SLAVE ioctl. Reads and writes are plain read(2)/write(2) calls.
type Devfs struct {
	// Dev overrides the device node. Defaults to /dev/i2c-<bus>.
	Dev string
}

// Open implements Opener.
func (o Devfs) Open(bus int, addr uint16) (Conn, error) {
	path := o.Dev
	if path == "" {
		path = fmt.Sprintf("/dev/i2c-%d", bus)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &TransportError{Op: "open " + path, Bus: bus, Addr: addr, Err: err}
	}
	if err := unix.IoctlSetInt(fd, i2cSlave, int(addr)); err != nil {
		_ = unix.Close(fd)
		return nil, &TransportError{Op: "bind", Bus: bus, Addr: addr, Err: err}
	}
	return &devfsConn{f: os.NewFile(uintptr(fd), path)}, nil
}

type devfsConn struct {
	f *os.File
}

func (c *devfsConn) Write(b []byte) error {
	n, err := c.f.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

func (c *devfsConn) Read(b []byte) error {
	n, err := c.f.Read(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (c *devfsConn) Close() error {
	return c.f.Close()
}
