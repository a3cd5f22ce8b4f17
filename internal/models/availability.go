package models

import (
	"time"

	"github.com/google/uuid"
)

// StaffAvailability represents a per-staff, per-date open time window
type StaffAvailability struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	StaffID     uuid.UUID     `json:"staff_id" db:"staff_id"`
	Date        time.Time     `json:"date" db:"date"`
	StartTime   string        `json:"start_time" db:"start_time"` // "HH:MM", 24h
	EndTime     string        `json:"end_time" db:"end_time"`
	IsAvailable bool          `json:"is_available" db:"is_available"`
	LocationID  uuid.NullUUID `json:"location_id,omitempty" db:"location_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// UpsertAvailabilityRequest sets a staff member's window for one date
type UpsertAvailabilityRequest struct {
	StaffID     string  `json:"staff_id" binding:"required,uuid"`
	Date        string  `json:"date" binding:"required"` // "2006-01-02"
	StartTime   string  `json:"start_time" binding:"required"`
	EndTime     string  `json:"end_time" binding:"required"`
	IsAvailable bool    `json:"is_available"`
	LocationID  *string `json:"location_id"`
}

// MarkMonthRequest toggles availability for every remaining day of the
// displayed month ("Mark/Unmark All")
type MarkMonthRequest struct {
	StaffID     string `json:"staff_id" binding:"required,uuid"`
	Month       string `json:"month" binding:"required"` // "2006-01"
	IsAvailable bool   `json:"is_available"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}
