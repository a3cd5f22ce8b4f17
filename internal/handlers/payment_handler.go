package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	payments *database.PaymentRepository
	bookings *database.BookingRepository
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *database.PaymentRepository, bookings *database.BookingRepository) *PaymentHandler {
	return &PaymentHandler{payments: payments, bookings: bookings}
}

// Record handles POST /api/v1/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		badRequest(c, "Invalid booking_id")
		return
	}

	if _, err := h.bookings.GetByID(bookingID); err != nil {
		notFound(c, "Booking not found")
		return
	}

	payment := &models.Payment{
		BookingID: bookingID,
		Amount:    req.Amount,
		Method:    models.NewNullString(req.Method),
		Status:    models.PaymentStatusPending,
		Reference: models.NewNullString(req.Reference),
	}

	if err := h.payments.Create(payment); err != nil {
		internalError(c, "Failed to record payment")
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ListByBooking handles GET /api/v1/bookings/:id/payments
func (h *PaymentHandler) ListByBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid booking id")
		return
	}

	payments, err := h.payments.GetByBooking(bookingID)
	if err != nil {
		internalError(c, "Failed to list payments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// UpdateStatusRequest is the payload for payment status changes
type UpdatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /api/v1/payments/:id/status
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid payment id")
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	switch req.Status {
	case models.PaymentStatusPending, models.PaymentStatusPaid,
		models.PaymentStatusRefunded, models.PaymentStatusFailed:
	default:
		badRequest(c, "Unknown payment status")
		return
	}

	if err := h.payments.UpdateStatus(id, req.Status); err != nil {
		if strings.Contains(err.Error(), "not found") {
			notFound(c, "Payment not found")
			return
		}
		internalError(c, "Failed to update payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment updated"})
}

// Revenue handles GET /api/v1/payments/revenue?start=...&end=...
func (h *PaymentHandler) Revenue(c *gin.Context) {
	start, end, err := parseRangeQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	total, err := h.payments.TotalRevenue(start, end)
	if err != nil {
		internalError(c, "Failed to compute revenue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "start": start, "end": end})
}
