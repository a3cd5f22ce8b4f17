package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/metrics"
	"github.com/slotline/booking-backend/internal/middleware"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/slotline/booking-backend/internal/utils"
)

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	bookings *services.BookingService
	audit    *services.AuditService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, audit *services.AuditService) *BookingHandler {
	return &BookingHandler{bookings: bookings, audit: audit}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.CreateBooking(&req)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}

	metrics.IncBookingCreated()
	userCtx := middleware.MustGetUserContext(c)
	h.audit.LogBookingEvent(&userCtx.UserID, booking.ID, "booking_created",
		utils.GetRealIP(c), utils.GetUserAgent(c),
		map[string]interface{}{"status": booking.Status})

	c.JSON(http.StatusCreated, booking)
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking id")
		return
	}

	booking, err := h.bookings.GetBooking(id)
	if err != nil {
		notFound(c, "Booking not found")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// List handles GET /api/v1/bookings?start=...&end=...&location_id=...
func (h *BookingHandler) List(c *gin.Context) {
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

	bookings, err := h.bookings.ListBookings(start, end, locationID)
	if err != nil {
		internalError(c, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ListMine handles GET /api/v1/bookings/mine
func (h *BookingHandler) ListMine(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	bookings, err := h.bookings.ListCustomerBookings(userCtx.UserID)
	if err != nil {
		internalError(c, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// Update handles PUT /api/v1/bookings/:id
func (h *BookingHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking id")
		return
	}

	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	if !h.authorizeMutation(c, userCtx, id) {
		return
	}

	booking, err := h.bookings.UpdateBooking(id, &req)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}

	h.audit.LogBookingEvent(&userCtx.UserID, booking.ID, "booking_updated",
		utils.GetRealIP(c), utils.GetUserAgent(c), nil)

	c.JSON(http.StatusOK, booking)
}

// UpdateStatus handles PATCH /api/v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking id")
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	if !h.authorizeMutation(c, userCtx, id) {
		return
	}

	booking, err := h.bookings.UpdateBookingStatus(id, req.Status)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}

	metrics.IncBookingTransition(string(req.Status))
	h.audit.LogBookingEvent(&userCtx.UserID, booking.ID, "booking_status_changed",
		utils.GetRealIP(c), utils.GetUserAgent(c),
		map[string]interface{}{"status": req.Status, "reason": req.Reason})

	c.JSON(http.StatusOK, booking)
}

// BlockSlot handles POST /api/v1/bookings/block
func (h *BookingHandler) BlockSlot(c *gin.Context) {
	var req models.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.BlockSlot(&req)
	if err != nil {
		h.writeBookingError(c, err)
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	h.audit.LogBookingEvent(&userCtx.UserID, booking.ID, "slot_blocked",
		utils.GetRealIP(c), utils.GetUserAgent(c), nil)

	c.JSON(http.StatusCreated, booking)
}

// ReleaseSlot handles DELETE /api/v1/bookings/block/:id
func (h *BookingHandler) ReleaseSlot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking id")
		return
	}

	if err := h.bookings.ReleaseSlot(id); err != nil {
		h.writeBookingError(c, err)
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	h.audit.LogBookingEvent(&userCtx.UserID, id, "slot_released",
		utils.GetRealIP(c), utils.GetUserAgent(c), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Slot released"})
}

// Stats handles GET /api/v1/bookings/stats?start=...&end=...
func (h *BookingHandler) Stats(c *gin.Context) {
	start, end, err := parseRangeQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	counts, err := h.bookings.CountByStatus(start, end)
	if err != nil {
		internalError(c, "Failed to count bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// authorizeMutation loads the booking and checks the caller may change it:
// staff, admins and managers always can, others only their own bookings.
// Writes the error response and returns false when the caller may not.
func (h *BookingHandler) authorizeMutation(c *gin.Context, userCtx middleware.UserContext, bookingID uuid.UUID) bool {
	booking, err := h.bookings.GetBooking(bookingID)
	if err != nil {
		notFound(c, "Booking not found")
		return false
	}

	for _, role := range userCtx.Roles {
		if role == "staff" || role == "admin" || role == "manager" {
			return true
		}
	}

	if booking.CustomerID == userCtx.UserID {
		return true
	}
	if booking.ProviderID.Valid && booking.ProviderID.UUID == userCtx.UserID {
		return true
	}

	c.JSON(http.StatusForbidden, ErrorResponse{
		Error:   "forbidden",
		Message: "You cannot modify this booking",
		Code:    "INSUFFICIENT_PERMISSIONS",
	})
	return false
}

func (h *BookingHandler) writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookingConflict):
		conflict(c, "The provider already has a booking in this time range")
	case errors.Is(err, services.ErrInvalidTimeRange),
		errors.Is(err, services.ErrPastBooking),
		errors.Is(err, services.ErrNotBlockedSlot):
		badRequest(c, err.Error())
	case strings.Contains(err.Error(), "not found"):
		notFound(c, err.Error())
	case strings.Contains(err.Error(), "invalid status transition"):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_transition",
			Message: err.Error(),
		})
	default:
		badRequest(c, err.Error())
	}
}

// parseRangeQuery reads RFC3339 start and end query parameters
func parseRangeQuery(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be an RFC3339 timestamp")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}

// parseOptionalUUID parses a uuid query parameter, nil when absent
func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
