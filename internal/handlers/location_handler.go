package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

// LocationHandler handles location HTTP requests
type LocationHandler struct {
	locations *database.LocationRepository
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations *database.LocationRepository) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// List handles GET /api/v1/locations?active=true
func (h *LocationHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	locations, err := h.locations.List(activeOnly)
	if err != nil {
		internalError(c, "Failed to list locations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// Get handles GET /api/v1/locations/:id
func (h *LocationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid location id")
		return
	}

	location, err := h.locations.GetByID(id)
	if err != nil {
		notFound(c, "Location not found")
		return
	}

	c.JSON(http.StatusOK, location)
}

// Create handles POST /api/v1/locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req models.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	location := &models.Location{
		Name:     req.Name,
		Address:  models.NewNullString(req.Address),
		Phone:    models.NewNullString(req.Phone),
		IsActive: true,
	}

	if err := h.locations.Create(location); err != nil {
		internalError(c, "Failed to create location")
		return
	}

	c.JSON(http.StatusCreated, location)
}

// Update handles PUT /api/v1/locations/:id
func (h *LocationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid location id")
		return
	}

	var req models.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	location, err := h.locations.GetByID(id)
	if err != nil {
		notFound(c, "Location not found")
		return
	}

	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = models.NewNullString(*req.Address)
	}
	if req.Phone != nil {
		location.Phone = models.NewNullString(*req.Phone)
	}
	if req.IsActive != nil {
		location.IsActive = *req.IsActive
	}

	if err := h.locations.Update(location); err != nil {
		if strings.Contains(err.Error(), "not found") {
			notFound(c, "Location not found")
			return
		}
		internalError(c, "Failed to update location")
		return
	}

	c.JSON(http.StatusOK, location)
}
