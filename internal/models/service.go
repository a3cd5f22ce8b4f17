package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BlockedServiceName is the sentinel service used for blocked slots
const BlockedServiceName = "__Blocked"

// Service represents a bookable offering
type Service struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	Description     NullString     `json:"description,omitempty" db:"description"`
	Price           float64        `json:"price" db:"price"`
	DurationMinutes int            `json:"duration_minutes" db:"duration_minutes"`
	StaffIDs        pq.StringArray `json:"staff_ids" db:"staff_ids"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// HasStaff reports whether the service has at least one assigned staff member
func (s *Service) HasStaff() bool {
	return len(s.StaffIDs) > 0
}

// CreateServiceRequest is the payload for creating a service
type CreateServiceRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	Price           float64  `json:"price" binding:"gte=0"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,gt=0"`
	StaffIDs        []string `json:"staff_ids"`
}

// UpdateServiceRequest is the payload for editing a service
type UpdateServiceRequest struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	Price           *float64  `json:"price"`
	DurationMinutes *int      `json:"duration_minutes"`
	StaffIDs        *[]string `json:"staff_ids"`
	IsActive        *bool     `json:"is_active"`
}
