package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Payment represents a payment record attached to a booking
type Payment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BookingID uuid.UUID     `json:"booking_id" db:"booking_id"`
	Amount    float64       `json:"amount" db:"amount"`
	Method    NullString    `json:"method,omitempty" db:"method"`
	Status    PaymentStatus `json:"status" db:"status"`
	Reference NullString    `json:"reference,omitempty" db:"reference"`
	PaidAt    NullTime      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// RecordPaymentRequest is the payload for attaching a payment to a booking
type RecordPaymentRequest struct {
	BookingID string  `json:"booking_id" binding:"required,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}
