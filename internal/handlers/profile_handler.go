package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/middleware"
	"github.com/slotline/booking-backend/internal/models"
)

// ProfileHandler handles the signed-in user's profile
type ProfileHandler struct {
	users *database.UserRepository
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(users *database.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	user, err := h.users.GetUserByID(userCtx.UserID)
	if err != nil {
		notFound(c, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

// Update handles PUT /api/v1/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var locationID *uuid.UUID
	if req.LocationID != nil && *req.LocationID != "" {
		id, err := uuid.Parse(*req.LocationID)
		if err != nil {
			badRequest(c, "Invalid location_id")
			return
		}
		locationID = &id
	}

	if err := h.users.UpdateProfile(userCtx.UserID, req.FirstName, req.LastName, req.Phone, locationID); err != nil {
		internalError(c, "Failed to update profile")
		return
	}

	user, err := h.users.GetUserByID(userCtx.UserID)
	if err != nil {
		internalError(c, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, user)
}
