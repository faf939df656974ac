// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/GermanBionicSystems/airmonitor/internal/record"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var reading = record.Reading{
	Time:         time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	ECO2:         450,
	ECO2Valid:    true,
	TVOC:         12,
	TVOCValid:    true,
	Temperature:  21.5,
	Humidity:     40.25,
	AmbientValid: true,
	Baseline:     0x847b,
}

func setup(t *testing.T) (*record.Latest, *Hub, *record.Metrics, http.Handler) {
	log, _ := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	m := record.NewMetrics(reg)
	latest := &record.Latest{}
	hub := NewHub(log)
	t.Cleanup(hub.Close)
	return latest, hub, m, New(latest, hub, reg, log)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReading(t *testing.T) {
	latest, _, _, h := setup(t)
	if w := get(h, "/api/reading"); w.Code != http.StatusNoContent {
		t.Fatalf("status %d before first reading", w.Code)
	}
	_ = latest.Record(context.Background(), reading)
	w := get(h, "/api/reading")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var got record.Reading
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(reading, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if !strings.Contains(w.Body.String(), `"eco2":450`) {
		t.Errorf("unexpected body %s", w.Body)
	}
}

func TestMetrics(t *testing.T) {
	_, _, m, h := setup(t)
	_ = m.Record(context.Background(), reading)
	m.SensorReset("transport")
	w := get(h, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	for _, s := range []string{"air_eco2_ppm 450", "air_humidity_percent 40.25", `air_sensor_resets_total{reason="transport"} 1`} {
		if !strings.Contains(w.Body.String(), s) {
			t.Errorf("%q missing", s)
		}
	}
}

func TestNotFound(t *testing.T) {
	_, _, _, h := setup(t)
	if w := get(h, "/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
}

func TestWebsocket(t *testing.T) {
	_, hub, _, h := setup(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	for deadline := time.Now().Add(5 * time.Second); hub.Len() != 1; {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	if err := hub.Record(context.Background(), reading); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got record.Reading
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(reading, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	// A departed client is forgotten.
	_ = conn.Close()
	for deadline := time.Now().Add(5 * time.Second); hub.Len() != 0; {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestServe(t *testing.T) {
	_, _, _, h := setup(t)
	log, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, "127.0.0.1:0", h, log) }()
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}
