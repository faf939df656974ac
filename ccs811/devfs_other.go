// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package ccs811

import "errors"

// Devfs is only supported on Linux.
type Devfs struct {
	Dev string
}

// Open implements Opener.
func (o Devfs) Open(bus int, addr uint16) (Conn, error) {
	return nil, &TransportError{Op: "open", Bus: bus, Addr: addr, Err: errors.New("i2c-dev is only available on linux")}
}
