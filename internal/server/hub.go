// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/airmonitor/internal/record"
)

const writeWait = 5 * time.Second

// client is the part of *websocket.Conn the hub uses.
type client interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// Hub broadcasts readings to the connected websocket clients. It is a
// record.Recorder.
type Hub struct {
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	// writeMu serializes broadcasts; a connection supports one writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	clients map[client]struct{}
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[client]struct{}{},
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Record sends r to every client. Clients that fail are dropped.
//
// Writes happen outside of h.mu so a slow client doesn't block
// connections, disconnections or Len.
func (h *Hub) Record(_ context.Context, r record.Reading) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	var failed []client
	for _, c := range h.snapshot() {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(r); err != nil {
			h.log.WithError(err).Debugf("dropping websocket client %s", c.RemoteAddr())
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.remove(c)
	}
	return nil
}

func (h *Hub) snapshot() []client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) add(c client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

// remove closes c if it is still registered.
func (h *Hub) remove(c client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		_ = c.Close()
		delete(h.clients, c)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	for _, c := range h.snapshot() {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		h.remove(c)
	}
}

func (h *Hub) handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}
	n := h.add(conn)
	h.log.Infof("websocket client %s connected, %d total", conn.RemoteAddr(), n)

	// Incoming messages are ignored, reading only detects the disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
	h.log.Infof("websocket client %s disconnected", conn.RemoteAddr())
}
