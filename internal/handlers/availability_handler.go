package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/services"
)

// AvailabilityHandler handles staff availability HTTP requests
type AvailabilityHandler struct {
	availability *services.AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// SetWindow handles PUT /api/v1/availability
func (h *AvailabilityHandler) SetWindow(c *gin.Context) {
	var req models.UpsertAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	window, err := h.availability.SetWindow(&req)
	if err != nil {
		h.writeAvailabilityError(c, err)
		return
	}

	c.JSON(http.StatusOK, window)
}

// List handles GET /api/v1/availability?from=...&to=...&staff_id=...&location_id=...
func (h *AvailabilityHandler) List(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		badRequest(c, "from must be a YYYY-MM-DD date")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		badRequest(c, "to must be a YYYY-MM-DD date")
		return
	}

	if staffRaw := c.Query("staff_id"); staffRaw != "" {
		staffID, err := uuid.Parse(staffRaw)
		if err != nil {
			badRequest(c, "Invalid staff_id")
			return
		}
		windows, err := h.availability.ListStaffWindows(staffID, from, to)
		if err != nil {
			internalError(c, "Failed to list availability")
			return
		}
		c.JSON(http.StatusOK, gin.H{"availability": windows})
		return
	}

	locationID, err := parseOptionalUUID(c.Query("location_id"))
	if err != nil {
		badRequest(c, "Invalid location_id")
		return
	}

	windows, err := h.availability.ListWindows(from, to, locationID)
	if err != nil {
		internalError(c, "Failed to list availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{"availability": windows})
}

// MarkMonth handles POST /api/v1/availability/mark-month
func (h *AvailabilityHandler) MarkMonth(c *gin.Context) {
	var req models.MarkMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.availability.MarkMonth(&req)
	if err != nil {
		h.writeAvailabilityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Availability updated",
		"days_updated": updated,
	})
}

func (h *AvailabilityHandler) writeAvailabilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidWindow), errors.Is(err, services.ErrMonthInPast):
		badRequest(c, err.Error())
	case strings.Contains(err.Error(), "not found"):
		notFound(c, err.Error())
	default:
		badRequest(c, err.Error())
	}
}
