// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package record

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// TimeLayout is the timestamp format of the CSV log.
const TimeLayout = "2006-01-02 15:04:05"

// CSV appends readings to a file, one line per reading:
//
//	2006-01-02 15:04:05,eCO2,TVOC,temperature,humidity
//
// Invalid gas values and stand-in ambient values are written as ERROR. The
// file is opened for every reading so it can be rotated underneath.
type CSV struct {
	Path string

	mu sync.Mutex
}

func (c *CSV) Record(_ context.Context, r Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "record: open csv")
	}
	w := csv.NewWriter(f)
	err = w.Write([]string{
		r.Time.Format(TimeLayout),
		csvField(r.ECO2, r.ECO2Valid),
		csvField(r.TVOC, r.TVOCValid),
		csvFloat(r.Temperature, r.AmbientValid),
		csvFloat(r.Humidity, r.AmbientValid),
	})
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return errors.Wrapf(err, "record: write %s", c.Path)
}

func csvFloat(v float64, valid bool) string {
	if !valid {
		return "ERROR"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func csvField(v uint16, valid bool) string {
	if !valid {
		return "ERROR"
	}
	return strconv.Itoa(int(v))
}
