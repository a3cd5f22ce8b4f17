package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/metrics"
	"github.com/slotline/booking-backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are handled by the CORS layer
		return true
	},
}

// WSHandler upgrades clients onto the realtime change feed
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Feed handles GET /api/v1/ws
func (h *WSHandler) Feed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Websocket upgrade failed")
		return
	}

	h.hub.Add(conn)
	metrics.SetWSClients(h.hub.Count())

	// Reads keep the connection alive; clients do not send data
	go func() {
		defer func() {
			h.hub.Remove(conn)
			metrics.SetWSClients(h.hub.Count())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
