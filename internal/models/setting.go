package models

import "time"

// Setting categories
const (
	SettingCategoryBooking      = "booking"
	SettingCategorySystem       = "system"
	SettingCategoryWorkingHours = "working_hours"
	SettingCategoryUser         = "user"
)

// Setting represents a key/value configuration row grouped by category
type Setting struct {
	ID        int64      `json:"id" db:"id"`
	Category  string     `json:"category" db:"category"`
	Key       string     `json:"key" db:"key"`
	Value     string     `json:"value" db:"value"`
	UpdatedBy NullString `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// UpdateSettingRequest is the payload for changing a setting value
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}
