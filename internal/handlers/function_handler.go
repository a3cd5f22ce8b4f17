package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/metrics"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/services"
)

// FunctionHandler exposes the transactional email function endpoints
type FunctionHandler struct {
	mailer   *services.MailService
	bookings *services.BookingService
}

// NewFunctionHandler creates a new function handler
func NewFunctionHandler(mailer *services.MailService, bookings *services.BookingService) *FunctionHandler {
	return &FunctionHandler{mailer: mailer, bookings: bookings}
}

// BookingCreatedEmailRequest is the payload for the created-email function
type BookingCreatedEmailRequest struct {
	BookingID            string   `json:"bookingId" binding:"required"`
	EmailRecipients      []string `json:"emailRecipients"`
	CustomEmailAddresses []string `json:"customEmailAddresses"`
}

// SendBookingCreatedEmail handles POST /functions/send-booking-created-email
func (h *FunctionHandler) SendBookingCreatedEmail(c *gin.Context) {
	var req BookingCreatedEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.fail(c, "bookingId must be a valid uuid")
		return
	}

	booking, err := h.bookings.GetBooking(bookingID)
	if err != nil {
		h.fail(c, "Booking not found")
		return
	}

	if err := h.mailer.NotifyBookingCreated(bookingID, booking, req.EmailRecipients, req.CustomEmailAddresses); err != nil {
		metrics.IncMail("failed")
		h.fail(c, err.Error())
		return
	}

	metrics.IncMail("sent")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BookingStatusEmailRequest is the payload for the status-email function
type BookingStatusEmailRequest struct {
	BookingID            string   `json:"bookingId" binding:"required"`
	OldStatus            string   `json:"oldStatus" binding:"required"`
	NewStatus            string   `json:"newStatus" binding:"required"`
	EmailRecipients      []string `json:"emailRecipients"`
	CustomEmailAddresses []string `json:"customEmailAddresses"`
}

// SendBookingStatusEmail handles POST /functions/send-booking-status-email
func (h *FunctionHandler) SendBookingStatusEmail(c *gin.Context) {
	var req BookingStatusEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.fail(c, "bookingId must be a valid uuid")
		return
	}

	oldStatus := models.BookingStatus(req.OldStatus)
	newStatus := models.BookingStatus(req.NewStatus)
	if !oldStatus.Valid() || !newStatus.Valid() {
		h.fail(c, "Unknown booking status")
		return
	}

	booking, err := h.bookings.GetBooking(bookingID)
	if err != nil {
		h.fail(c, "Booking not found")
		return
	}

	if err := h.mailer.NotifyBookingStatusChanged(booking, oldStatus, newStatus, req.EmailRecipients, req.CustomEmailAddresses); err != nil {
		metrics.IncMail("failed")
		h.fail(c, err.Error())
		return
	}

	metrics.IncMail("sent")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail writes the function-style error envelope
func (h *FunctionHandler) fail(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}
