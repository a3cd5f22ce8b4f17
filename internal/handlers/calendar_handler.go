package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slotline/booking-backend/internal/services"
)

// CalendarHandler serves the calendar view with resource columns
type CalendarHandler struct {
	calendar *services.CalendarService
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendar *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// GetView handles GET /api/v1/calendar?start=...&end=...&location_id=...
func (h *CalendarHandler) GetView(c *gin.Context) {
	start, end, err := parseRangeQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	locationID, err := parseOptionalUUID(c.Query("location_id"))
	if err != nil {
		badRequest(c, "Invalid location_id")
		return
	}

	view, err := h.calendar.BuildView(start, end, locationID)
	if err != nil {
		internalError(c, "Failed to build calendar view")
		return
	}

	c.JSON(http.StatusOK, view)
}
