// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub upgrades incoming HTTP connections to WebSocket and relays every
// Broadcaster event to each connected client, adapted from the teacher's
// WebSocketManager (per-client connection map + ping ticker) onto the
// typed Event catalogue instead of ad hoc notification strings.
type Hub struct {
	broadcaster *Broadcaster
	log         zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn

	pingTicker *time.Ticker
	done       chan struct{}
}

// NewHub constructs a Hub relaying b's events to WebSocket subscribers.
func NewHub(b *Broadcaster, log zerolog.Logger) *Hub {
	h := &Hub{
		broadcaster: b,
		log:         log,
		clients:     make(map[string]*websocket.Conn),
		pingTicker:  time.NewTicker(30 * time.Second),
		done:        make(chan struct{}),
	}
	go h.pingLoop()
	return h
}

// ServeHTTP upgrades the request and registers the connection under
// clientID, read from the client_id query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "client_id query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", clientID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[clientID] = conn
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, clientID)
		h.mu.Unlock()
	}()

	ch := make(chan Event, 32)
	h.broadcaster.Subscribe(ch)
	defer h.broadcaster.Unsubscribe(ch)

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	// Drain inbound frames (clients only send pings/control frames) in the
	// background so reads don't block the write loop below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for evt := range ch {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (h *Hub) pingLoop() {
	for {
		select {
		case <-h.done:
			return
		case <-h.pingTicker.C:
			h.pingAll()
		}
	}
}

func (h *Hub) pingAll() {
	h.mu.RLock()
	clients := make(map[string]*websocket.Conn, len(h.clients))
	for id, c := range h.clients {
		clients[id] = c
	}
	h.mu.RUnlock()

	for id, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
			h.mu.Lock()
			delete(h.clients, id)
			h.mu.Unlock()
			conn.Close()
		}
	}
}

// Stop halts the ping loop and closes every connection.
func (h *Hub) Stop() {
	close(h.done)
	h.pingTicker.Stop()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}
