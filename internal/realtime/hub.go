package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub fans change feed payloads out to connected websocket clients
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Add registers a client connection
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

// Remove drops a client connection
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	conn.Close()
}

// Broadcast writes a payload to every client. Clients that fail the write
// are dropped.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.WithField("error", err.Error()).Debug("Dropping websocket client")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
