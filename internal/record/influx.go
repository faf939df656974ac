// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package record

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/pkg/errors"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "air_quality"

// Influx writes readings to an InfluxDB v2 bucket.
type Influx struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *Influx {
	c := influxdb2.NewClient(url, token)
	return &Influx{client: c, write: c.WriteAPIBlocking(org, bucket)}
}

func (i *Influx) Record(ctx context.Context, r Reading) error {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("sensor", "ccs811").
		AddField("baseline", int64(r.Baseline)).
		SetTime(r.Time)
	// Out of range or stand-in values are left out.
	if r.AmbientValid {
		p.AddField("temperature", r.Temperature)
		p.AddField("humidity", r.Humidity)
	}
	if r.ECO2Valid {
		p.AddField("eco2", int64(r.ECO2))
	}
	if r.TVOCValid {
		p.AddField("tvoc", int64(r.TVOC))
	}
	return errors.Wrap(i.write.WritePoint(ctx, p), "record: influx write")
}

func (i *Influx) Close() {
	i.client.Close()
}
