package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

var (
	// ErrInvalidWindow indicates the window ends before it starts
	ErrInvalidWindow = fmt.Errorf("availability window end must be after start")

	// ErrMonthInPast indicates a bulk mark on a month with no remaining days
	ErrMonthInPast = fmt.Errorf("month has no remaining days to update")
)

// AvailabilityService manages per-staff per-date working windows
type AvailabilityService struct {
	availability *database.AvailabilityRepository
	users        *database.UserRepository

	defaultStart string // "HH:MM" used when a bulk mark omits times
	defaultEnd   string

	now func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	availability *database.AvailabilityRepository,
	users *database.UserRepository,
	defaultStart, defaultEnd string,
) *AvailabilityService {
	return &AvailabilityService{
		availability: availability,
		users:        users,
		defaultStart: defaultStart,
		defaultEnd:   defaultEnd,
		now:          time.Now,
	}
}

// SetWindow upserts one staff member's window for one date
func (s *AvailabilityService) SetWindow(req *models.UpsertAvailabilityRequest) (*models.StaffAvailability, error) {
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return nil, fmt.Errorf("invalid staff id: %w", err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	if err := validateClockWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	staff, err := s.users.GetUserByID(staffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsProvider() {
		return nil, fmt.Errorf("user is not a staff member")
	}

	window := &models.StaffAvailability{
		StaffID:     staffID,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	}

	if req.LocationID != nil && *req.LocationID != "" {
		locationID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("invalid location id: %w", err)
		}
		window.LocationID = uuid.NullUUID{UUID: locationID, Valid: true}
	}

	if err := s.availability.Upsert(window); err != nil {
		return nil, fmt.Errorf("failed to save availability: %w", err)
	}

	return window, nil
}

// ListWindows lists availability for a date range, optionally by location
func (s *AvailabilityService) ListWindows(from, to time.Time, locationID *uuid.UUID) ([]models.StaffAvailability, error) {
	return s.availability.ListByRange(from, to, locationID)
}

// ListStaffWindows lists one staff member's availability for a range
func (s *AvailabilityService) ListStaffWindows(staffID uuid.UUID, from, to time.Time) ([]models.StaffAvailability, error) {
	return s.availability.ListByStaff(staffID, from, to)
}

// MarkMonth sets availability uniformly across the displayed month.
// Only dates from today onward are touched: past days keep their history.
func (s *AvailabilityService) MarkMonth(req *models.MarkMonthRequest) (int64, error) {
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return 0, fmt.Errorf("invalid staff id: %w", err)
	}

	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return 0, fmt.Errorf("invalid month: %w", err)
	}

	startTime := req.StartTime
	endTime := req.EndTime
	if startTime == "" {
		startTime = s.defaultStart
	}
	if endTime == "" {
		endTime = s.defaultEnd
	}
	if err := validateClockWindow(startTime, endTime); err != nil {
		return 0, err
	}

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	last := first.AddDate(0, 1, -1)

	today := s.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, month.Location())

	from := first
	if today.After(from) {
		from = today
	}

	if from.After(last) {
		return 0, ErrMonthInPast
	}

	updated, err := s.availability.SetAvailableRange(staffID, from, last, req.IsAvailable, startTime, endTime)
	if err != nil {
		return 0, fmt.Errorf("failed to mark month: %w", err)
	}

	return updated, nil
}

// validateClockWindow checks "HH:MM" values and their order
func validateClockWindow(startStr, endStr string) error {
	start, err := time.Parse("15:04", startStr)
	if err != nil {
		return fmt.Errorf("invalid start time %q (want HH:MM)", startStr)
	}

	end, err := time.Parse("15:04", endStr)
	if err != nil {
		return fmt.Errorf("invalid end time %q (want HH:MM)", endStr)
	}

	if !end.After(start) {
		return ErrInvalidWindow
	}

	return nil
}
