package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slotline/booking-backend/internal/services"
)

// SessionHandler serves the admin connected-users report
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ConnectedUsers handles GET /api/v1/admin/connected-users
func (h *SessionHandler) ConnectedUsers(c *gin.Context) {
	users, err := h.sessions.ConnectedUsers()
	if err != nil {
		internalError(c, "Failed to list connected users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected_users": users,
		"count":           len(users),
	})
}
