package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

// CalendarService builds the calendar view: every booking in the range is
// placed in either a staff column or the generic column. The assignment is
// recomputed from scratch on every request.
type CalendarService struct {
	bookings     *database.BookingRepository
	services     *database.ServiceRepository
	users        *database.UserRepository
	availability *database.AvailabilityRepository
}

// NewCalendarService creates a new calendar service
func NewCalendarService(
	bookings *database.BookingRepository,
	services *database.ServiceRepository,
	users *database.UserRepository,
	availability *database.AvailabilityRepository,
) *CalendarService {
	return &CalendarService{
		bookings:     bookings,
		services:     services,
		users:        users,
		availability: availability,
	}
}

// CalendarView is the assembled calendar payload for a date range
type CalendarView struct {
	Resources []models.CalendarResource `json:"resources"`
	Events    []models.CalendarEvent    `json:"events"`
}

// BuildView loads bookings, staff and availability for the range and assigns
// every event to a resource column
func (s *CalendarService) BuildView(start, end time.Time, locationID *uuid.UUID) (*CalendarView, error) {
	bookings, err := s.bookings.ListByRange(start, end, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	staff, err := s.users.ListProviders(locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	availability, err := s.availability.ListByRange(start, end, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}

	serviceList, err := s.services.List(false)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	servicesByID := make(map[uuid.UUID]*models.Service, len(serviceList))
	for i := range serviceList {
		servicesByID[serviceList[i].ID] = &serviceList[i]
	}

	staffByID := make(map[uuid.UUID]*models.User, len(staff))
	for i := range staff {
		staffByID[staff[i].ID] = &staff[i]
	}

	resources := buildResources(staff)
	events := make([]models.CalendarEvent, 0, len(bookings))

	for i := range bookings {
		booking := &bookings[i]

		// Events without a usable time range are dropped, never fatal
		if booking.StartTime.IsZero() || booking.EndTime.IsZero() || !booking.EndTime.After(booking.StartTime) {
			logrus.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"start":      booking.StartTime,
				"end":        booking.EndTime,
			}).Warn("Dropping calendar event with malformed time range")
			continue
		}

		svc := servicesByID[booking.ServiceID]
		resourceID := s.assignResource(booking, svc, staffByID, availability)

		events = append(events, models.CalendarEvent{
			ID:         booking.ID.String(),
			Title:      eventTitle(booking, svc),
			Start:      booking.StartTime,
			End:        booking.EndTime,
			ResourceID: resourceID,
			Status:     string(booking.Status),
			ServiceID:  booking.ServiceID.String(),
			IsBlocked:  booking.IsBlockedSlot(),
		})
	}

	return &CalendarView{Resources: resources, Events: events}, nil
}

// assignResource decides which column a booking lands in. A staff column is
// used only when the service has staff, the booking names a provider, the
// provider is a known staff member, and the provider has an availability
// window covering the booking's times on that date. Everything else goes to
// the generic column.
func (s *CalendarService) assignResource(
	booking *models.Booking,
	svc *models.Service,
	staffByID map[uuid.UUID]*models.User,
	availability []models.StaffAvailability,
) string {
	// Blocked slots always sit in their staff member's column
	if booking.IsBlockedSlot() && booking.ProviderID.Valid {
		if _, known := staffByID[booking.ProviderID.UUID]; known {
			return booking.ProviderID.UUID.String()
		}
		return models.GenericResourceID
	}

	if svc == nil || !svc.HasStaff() {
		return models.GenericResourceID
	}

	if !booking.ProviderID.Valid {
		return models.GenericResourceID
	}

	providerID := booking.ProviderID.UUID
	if _, known := staffByID[providerID]; !known {
		return models.GenericResourceID
	}

	if !hasCoveringWindow(providerID, booking.StartTime, booking.EndTime, availability) {
		return models.GenericResourceID
	}

	return providerID.String()
}

// hasCoveringWindow checks for an is_available window on the booking's date
// that fully covers the booking's start and end clock times
func hasCoveringWindow(staffID uuid.UUID, start, end time.Time, availability []models.StaffAvailability) bool {
	for i := range availability {
		window := &availability[i]
		if window.StaffID != staffID || !window.IsAvailable {
			continue
		}

		if !sameDate(window.Date, start) {
			continue
		}

		windowStart, err := clockOnDate(window.Date, window.StartTime)
		if err != nil {
			continue
		}
		windowEnd, err := clockOnDate(window.Date, window.EndTime)
		if err != nil {
			continue
		}

		if !start.Before(windowStart) && !end.After(windowEnd) {
			return true
		}
	}

	return false
}

// buildResources produces one column per staff member plus the generic bucket
func buildResources(staff []models.User) []models.CalendarResource {
	resources := make([]models.CalendarResource, 0, len(staff)+1)
	for i := range staff {
		resources = append(resources, models.CalendarResource{
			ID:    staff[i].ID.String(),
			Title: staffTitle(&staff[i]),
		})
	}
	resources = append(resources, models.CalendarResource{
		ID:    models.GenericResourceID,
		Title: "General",
	})
	return resources
}

func staffTitle(staff *models.User) string {
	name := ""
	if staff.FirstName.Valid {
		name = staff.FirstName.String
	}
	if staff.LastName.Valid {
		if name != "" {
			name += " "
		}
		name += staff.LastName.String
	}
	if name == "" {
		name = staff.Email
	}
	return name
}

func eventTitle(booking *models.Booking, svc *models.Service) string {
	if booking.IsBlockedSlot() {
		return "Blocked"
	}
	if svc != nil {
		return svc.Name
	}
	return "Booking"
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// clockOnDate combines a date with an "HH:MM" clock value
func clockOnDate(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock value %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
