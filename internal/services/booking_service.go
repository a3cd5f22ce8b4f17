package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

var (
	// ErrInvalidTimeRange indicates the booking ends before it starts
	ErrInvalidTimeRange = fmt.Errorf("booking end time must be after start time")

	// ErrPastBooking indicates the booking starts in the past
	ErrPastBooking = fmt.Errorf("booking start time must be in the future")

	// ErrBookingConflict indicates the provider already has a booking in the slot
	ErrBookingConflict = fmt.Errorf("provider already has a booking in this time slot")

	// ErrNotBlockedSlot indicates a release was attempted on a regular booking
	ErrNotBlockedSlot = fmt.Errorf("booking is not a blocked slot")
)

// ChangeNotifier receives table change events for the realtime feed.
// Implemented by realtime.Publisher.
type ChangeNotifier interface {
	NotifyChange(table, action string, oldRow, newRow interface{})
}

// BookingMailer sends transactional booking mail.
// Implemented by the mail service; calls are fire-and-forget.
type BookingMailer interface {
	SendBookingCreated(booking *models.Booking) error
	SendBookingStatusChanged(booking *models.Booking, oldStatus, newStatus models.BookingStatus) error
}

// BookingService implements the booking lifecycle
type BookingService struct {
	bookings *database.BookingRepository
	services *database.ServiceRepository
	users    *database.UserRepository
	notifier ChangeNotifier
	mailer   BookingMailer
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings *database.BookingRepository,
	services *database.ServiceRepository,
	users *database.UserRepository,
	notifier ChangeNotifier,
	mailer BookingMailer,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		services: services,
		users:    users,
		notifier: notifier,
		mailer:   mailer,
	}
}

// CreateBooking validates and stores a new booking, then dispatches mail and
// a change event. Mail and event failures never fail the booking write.
func (s *BookingService) CreateBooking(req *models.CreateBookingRequest) (*models.Booking, error) {
	start, end, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if !start.After(time.Now()) {
		return nil, ErrPastBooking
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id: %w", err)
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid service id: %w", err)
	}

	if _, err := s.services.GetByID(serviceID); err != nil {
		return nil, fmt.Errorf("failed to fetch service: %w", err)
	}

	booking := &models.Booking{
		CustomerID: customerID,
		ServiceID:  serviceID,
		StartTime:  start,
		EndTime:    end,
		Status:     models.BookingStatusPending,
		Notes:      models.NewNullString(req.Notes),
	}

	if req.ProviderID != nil && *req.ProviderID != "" {
		providerID, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("invalid provider id: %w", err)
		}
		booking.ProviderID = uuid.NullUUID{UUID: providerID, Valid: true}

		if err := s.checkConflicts(providerID, start, end, uuid.Nil); err != nil {
			return nil, err
		}
	}

	if req.LocationID != nil && *req.LocationID != "" {
		locationID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("invalid location id: %w", err)
		}
		booking.LocationID = uuid.NullUUID{UUID: locationID, Valid: true}
	}

	if err := s.bookings.Create(booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.dispatchCreated(booking)

	return booking, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.GetByID(bookingID)
}

// ListBookings lists bookings within a time range, optionally by location
func (s *BookingService) ListBookings(start, end time.Time, locationID *uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByRange(start, end, locationID)
}

// ListCustomerBookings lists a customer's bookings
func (s *BookingService) ListCustomerBookings(customerID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByCustomer(customerID)
}

// UpdateBooking reschedules or reassigns a booking
func (s *BookingService) UpdateBooking(bookingID uuid.UUID, req *models.UpdateBookingRequest) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	old := *booking

	if req.StartTime != nil || req.EndTime != nil {
		startStr := booking.StartTime.Format(time.RFC3339)
		endStr := booking.EndTime.Format(time.RFC3339)
		if req.StartTime != nil {
			startStr = *req.StartTime
		}
		if req.EndTime != nil {
			endStr = *req.EndTime
		}

		start, end, err := parseTimeRange(startStr, endStr)
		if err != nil {
			return nil, err
		}
		booking.StartTime = start
		booking.EndTime = end
	}

	if req.ProviderID != nil {
		if *req.ProviderID == "" {
			booking.ProviderID = uuid.NullUUID{}
		} else {
			providerID, err := uuid.Parse(*req.ProviderID)
			if err != nil {
				return nil, fmt.Errorf("invalid provider id: %w", err)
			}
			booking.ProviderID = uuid.NullUUID{UUID: providerID, Valid: true}
		}
	}

	if req.Notes != nil {
		booking.Notes = models.NewNullString(*req.Notes)
	}

	if booking.ProviderID.Valid {
		if err := s.checkConflicts(booking.ProviderID.UUID, booking.StartTime, booking.EndTime, booking.ID); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.Update(booking); err != nil {
		return nil, err
	}

	s.notifyChange("bookings", "UPDATE", &old, booking)

	return booking, nil
}

// UpdateBookingStatus moves a booking through its lifecycle
func (s *BookingService) UpdateBookingStatus(bookingID uuid.UUID, newStatus models.BookingStatus) (*models.Booking, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("unknown booking status: %s", newStatus)
	}

	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if err := CanTransitionBooking(booking.Status, newStatus); err != nil {
		return nil, err
	}

	oldStatus := booking.Status
	if oldStatus == newStatus {
		return booking, nil
	}

	// Reinstating into an occupied slot is still a conflict
	if oldStatus == models.BookingStatusCancelled && booking.ProviderID.Valid {
		if err := s.checkConflicts(booking.ProviderID.UUID, booking.StartTime, booking.EndTime, booking.ID); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.UpdateStatus(bookingID, newStatus); err != nil {
		return nil, err
	}

	old := *booking
	booking.Status = newStatus

	s.dispatchStatusChanged(booking, &old, oldStatus, newStatus)

	return booking, nil
}

// BlockSlot reserves a staff member's time without a customer.
// The row is a booking with customer = provider and the sentinel service.
func (s *BookingService) BlockSlot(req *models.BlockSlotRequest) (*models.Booking, error) {
	start, end, err := parseTimeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return nil, fmt.Errorf("invalid staff id: %w", err)
	}

	staff, err := s.users.GetUserByID(staffID)
	if err != nil {
		return nil, err
	}
	if !staff.IsProvider() {
		return nil, fmt.Errorf("user is not a staff member")
	}

	blockedService, err := s.services.GetByName(models.BlockedServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blocked sentinel service: %w", err)
	}

	if err := s.checkConflicts(staffID, start, end, uuid.Nil); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		CustomerID: staffID,
		ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
		ServiceID:  blockedService.ID,
		LocationID: staff.LocationID,
		StartTime:  start,
		EndTime:    end,
		Status:     models.BookingStatusBlocked,
		Notes:      models.NewNullString(req.Notes),
	}

	if err := s.bookings.Create(booking); err != nil {
		return nil, fmt.Errorf("failed to block slot: %w", err)
	}

	s.notifyChange("bookings", "INSERT", nil, booking)

	return booking, nil
}

// ReleaseSlot deletes a blocked slot. Regular bookings are cancelled instead.
func (s *BookingService) ReleaseSlot(bookingID uuid.UUID) error {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return err
	}

	if !booking.IsBlockedSlot() {
		return ErrNotBlockedSlot
	}

	if err := s.bookings.Delete(bookingID); err != nil {
		return err
	}

	s.notifyChange("bookings", "DELETE", booking, nil)

	return nil
}

// CountByStatus returns booking counts per status within a range
func (s *BookingService) CountByStatus(start, end time.Time) (map[models.BookingStatus]int, error) {
	return s.bookings.CountByStatus(start, end)
}

// checkConflicts rejects a slot already taken by a non-cancelled booking
func (s *BookingService) checkConflicts(providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) error {
	conflicts, err := s.bookings.FindConflicts(providerID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check conflicts: %w", err)
	}

	if len(conflicts) > 0 {
		return ErrBookingConflict
	}

	return nil
}

// dispatchCreated sends the creation mail and change event without blocking
func (s *BookingService) dispatchCreated(booking *models.Booking) {
	s.notifyChange("bookings", "INSERT", nil, booking)

	if s.mailer == nil {
		return
	}

	b := *booking
	go func() {
		if err := s.mailer.SendBookingCreated(&b); err != nil {
			logrus.WithFields(logrus.Fields{
				"booking_id": b.ID,
				"error":      err.Error(),
			}).Warn("Failed to send booking created mail")
		}
	}()
}

// dispatchStatusChanged sends the status mail and change event without blocking
func (s *BookingService) dispatchStatusChanged(booking, old *models.Booking, oldStatus, newStatus models.BookingStatus) {
	s.notifyChange("bookings", "UPDATE", old, booking)

	if s.mailer == nil {
		return
	}

	b := *booking
	go func() {
		if err := s.mailer.SendBookingStatusChanged(&b, oldStatus, newStatus); err != nil {
			logrus.WithFields(logrus.Fields{
				"booking_id": b.ID,
				"old_status": oldStatus,
				"new_status": newStatus,
				"error":      err.Error(),
			}).Warn("Failed to send booking status mail")
		}
	}()
}

func (s *BookingService) notifyChange(table, action string, oldRow, newRow interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyChange(table, action, oldRow, newRow)
}

// parseTimeRange parses RFC3339 start/end strings and validates their order
func parseTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}

	return start, end, nil
}
