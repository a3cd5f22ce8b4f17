package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusBlocked   BookingStatus = "blocked"
)

// Valid reports whether the status is a known booking status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusBlocked:
		return true
	}
	return false
}

// Booking represents an appointment linking a customer, a provider and a
// service over a time range. Blocked slots are booking rows where the
// customer and provider are the same staff member and the service is the
// __Blocked sentinel.
type Booking struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	CustomerID uuid.UUID     `json:"customer_id" db:"customer_id"`
	ProviderID uuid.NullUUID `json:"provider_id,omitempty" db:"provider_id"`
	ServiceID  uuid.UUID     `json:"service_id" db:"service_id"`
	LocationID uuid.NullUUID `json:"location_id,omitempty" db:"location_id"`
	StartTime  time.Time     `json:"start_time" db:"start_time"`
	EndTime    time.Time     `json:"end_time" db:"end_time"`
	Status     BookingStatus `json:"status" db:"status"`
	Notes      NullString    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// IsBlockedSlot reports whether the booking reserves staff time without a
// real customer
func (b *Booking) IsBlockedSlot() bool {
	return b.Status == BookingStatusBlocked ||
		(b.ProviderID.Valid && b.CustomerID == b.ProviderID.UUID)
}

// CreateBookingRequest is the payload for creating a booking
type CreateBookingRequest struct {
	CustomerID string  `json:"customer_id" binding:"required,uuid"`
	ProviderID *string `json:"provider_id"`
	ServiceID  string  `json:"service_id" binding:"required,uuid"`
	LocationID *string `json:"location_id"`
	StartTime  string  `json:"start_time" binding:"required"`
	EndTime    string  `json:"end_time" binding:"required"`
	Notes      string  `json:"notes"`
}

// UpdateBookingRequest is the payload for rescheduling or reassigning
type UpdateBookingRequest struct {
	ProviderID *string `json:"provider_id"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Notes      *string `json:"notes"`
}

// UpdateBookingStatusRequest is the payload for status changes
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
	Reason string        `json:"reason"`
}

// BlockSlotRequest reserves a staff member's time without a customer
type BlockSlotRequest struct {
	StaffID   string `json:"staff_id" binding:"required,uuid"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Notes     string `json:"notes"`
}
