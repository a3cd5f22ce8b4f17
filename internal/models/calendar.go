package models

import "time"

// GenericResourceID is the synthetic calendar column for events that cannot
// be attributed to a specific staff member
const GenericResourceID = "generic"

// CalendarEvent is a booking or availability window placed in a calendar
// column
type CalendarEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	ResourceID string    `json:"resource_id"`
	Status     string    `json:"status,omitempty"`
	ServiceID  string    `json:"service_id,omitempty"`
	IsBlocked  bool      `json:"is_blocked,omitempty"`
}

// CalendarResource is a column in the calendar: one staff member or the
// generic bucket
type CalendarResource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
