package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slotline/booking-backend/internal/middleware"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/slotline/booking-backend/internal/utils"
)

// SettingHandler handles settings HTTP requests
type SettingHandler struct {
	settings *services.SettingsService
	audit    *services.AuditService
}

// NewSettingHandler creates a new setting handler
func NewSettingHandler(settings *services.SettingsService, audit *services.AuditService) *SettingHandler {
	return &SettingHandler{settings: settings, audit: audit}
}

// List handles GET /api/v1/settings?category=...
func (h *SettingHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Query("category"))
	if err != nil {
		internalError(c, "Failed to list settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// Update handles PUT /api/v1/settings/:category/:key
func (h *SettingHandler) Update(c *gin.Context) {
	category := c.Param("category")
	key := c.Param("key")

	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userCtx := middleware.MustGetUserContext(c)

	if err := h.settings.Update(category, key, req.Value, userCtx.Email); err != nil {
		if errors.Is(err, services.ErrUnknownSetting) {
			notFound(c, err.Error())
			return
		}
		badRequest(c, err.Error())
		return
	}

	h.audit.LogSettingChange(userCtx.UserID, category, key, "", req.Value,
		utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{"message": "Setting updated"})
}
