// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811_test

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/airmonitor/ccs811"
	"periph.io/x/conn/v3/physic"
)

func Example() {
	// Use the kernel i2c-dev interface on /dev/i2c-1.
	dev, err := ccs811.New(ccs811.Devfs{}, 1, ccs811.DefaultAddress, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()

	if err := dev.CheckHardwareID(); err != nil {
		log.Fatal(err)
	}
	if err := dev.Configure(ccs811.NewMeasMode(ccs811.DriveMode10s, false, false)); err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		time.Sleep(10 * time.Second)
		if err := dev.SetCompensation(physic.ZeroCelsius+21*physic.Celsius, 45*physic.PercentRH); err != nil {
			log.Fatal(err)
		}
		status, err := dev.ReadStatus()
		if err != nil {
			log.Fatal(err)
		}
		if code, ok, err := dev.CheckError(status); err != nil {
			log.Fatal(err)
		} else if ok {
			fmt.Printf("sensor error: %s\n", code)
		}
		if !status.DataReady() {
			continue
		}
		r, err := dev.ReadAlgorithmResult()
		var inv *ccs811.InvalidErrorCodeError
		if errors.As(err, &inv) {
			continue
		} else if err != nil {
			log.Fatal(err)
		}
		fmt.Println(r)
	}
}
