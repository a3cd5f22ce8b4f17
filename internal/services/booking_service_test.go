package services

import (
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures change events for assertions
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyChange(table, action string, oldRow, newRow interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, table+":"+action)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.events...)
}

// recordingMailer captures mail dispatches for assertions
type recordingMailer struct {
	mu            sync.Mutex
	created       int
	statusChanged int
	err           error
	done          chan struct{}
}

func newRecordingMailer(err error) *recordingMailer {
	return &recordingMailer{err: err, done: make(chan struct{}, 8)}
}

func (m *recordingMailer) SendBookingCreated(booking *models.Booking) error {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *recordingMailer) SendBookingStatusChanged(booking *models.Booking, oldStatus, newStatus models.BookingStatus) error {
	m.mu.Lock()
	m.statusChanged++
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func (m *recordingMailer) waitForDispatch(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("mail dispatch never happened")
	}
}

func setupBookingTest(t *testing.T, mailErr error) (*BookingService, sqlmock.Sqlmock, *recordingNotifier, *recordingMailer, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	notifier := &recordingNotifier{}
	mailer := newRecordingMailer(mailErr)

	service := NewBookingService(
		database.NewBookingRepository(postgresDB),
		database.NewServiceRepository(postgresDB),
		database.NewUserRepository(postgresDB),
		notifier,
		mailer,
	)

	cleanup := func() {
		db.Close()
	}

	return service, mock, notifier, mailer, cleanup
}

func serviceRows(id uuid.UUID, name string, staffIDs string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "price", "duration_minutes",
		"staff_ids", "is_active", "created_at", "updated_at",
	}).AddRow(id, name, nil, 25.0, 60, staffIDs, true, time.Now(), time.Now())
}

func bookingRows(booking *models.Booking) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "customer_id", "provider_id", "service_id", "location_id",
		"start_time", "end_time", "status", "notes", "created_at", "updated_at",
	}).AddRow(
		booking.ID, booking.CustomerID, booking.ProviderID, booking.ServiceID,
		booking.LocationID, booking.StartTime, booking.EndTime,
		booking.Status, booking.Notes, time.Now(), time.Now(),
	)
}

func emptyBookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "customer_id", "provider_id", "service_id", "location_id",
		"start_time", "end_time", "status", "notes", "created_at", "updated_at",
	})
}

func TestCreateBooking(t *testing.T) {
	service, mock, notifier, mailer, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	customerID := uuid.New()
	providerID := uuid.New()
	serviceID := uuid.New()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs(serviceID).
		WillReturnRows(serviceRows(serviceID, "Haircut", "{"+providerID.String()+"}"))

	// Conflict check finds nothing
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(emptyBookingRows())

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	providerStr := providerID.String()
	booking, err := service.CreateBooking(&models.CreateBookingRequest{
		CustomerID: customerID.String(),
		ProviderID: &providerStr,
		ServiceID:  serviceID.String(),
		StartTime:  start.Format(time.RFC3339),
		EndTime:    end.Format(time.RFC3339),
		Notes:      "first visit",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, customerID, booking.CustomerID)
	assert.True(t, booking.ProviderID.Valid)
	assert.Equal(t, providerID, booking.ProviderID.UUID)

	mailer.waitForDispatch(t)
	assert.Contains(t, notifier.Events(), "bookings:INSERT")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_EndBeforeStart(t *testing.T) {
	service, _, _, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	start := time.Now().Add(24 * time.Hour)

	_, err := service.CreateBooking(&models.CreateBookingRequest{
		CustomerID: uuid.New().String(),
		ServiceID:  uuid.New().String(),
		StartTime:  start.Format(time.RFC3339),
		EndTime:    start.Add(-time.Hour).Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCreateBooking_PastStart(t *testing.T) {
	service, _, _, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	start := time.Now().Add(-2 * time.Hour)

	_, err := service.CreateBooking(&models.CreateBookingRequest{
		CustomerID: uuid.New().String(),
		ServiceID:  uuid.New().String(),
		StartTime:  start.Format(time.RFC3339),
		EndTime:    start.Add(time.Hour).Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrPastBooking)
}

func TestCreateBooking_Conflict(t *testing.T) {
	service, mock, _, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	providerID := uuid.New()
	serviceID := uuid.New()
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs(serviceID).
		WillReturnRows(serviceRows(serviceID, "Haircut", "{}"))

	existing := &models.Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		ProviderID: uuid.NullUUID{UUID: providerID, Valid: true},
		ServiceID:  serviceID,
		StartTime:  start,
		EndTime:    end,
		Status:     models.BookingStatusConfirmed,
	}

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(bookingRows(existing))

	providerStr := providerID.String()
	_, err := service.CreateBooking(&models.CreateBookingRequest{
		CustomerID: uuid.New().String(),
		ProviderID: &providerStr,
		ServiceID:  serviceID.String(),
		StartTime:  start.Format(time.RFC3339),
		EndTime:    end.Format(time.RFC3339),
	})

	assert.ErrorIs(t, err, ErrBookingConflict)
}

func TestCreateBooking_MailFailureDoesNotFailBooking(t *testing.T) {
	service, mock, _, mailer, cleanup := setupBookingTest(t, assert.AnError)
	defer cleanup()

	serviceID := uuid.New()
	start := time.Now().Add(24 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs(serviceID).
		WillReturnRows(serviceRows(serviceID, "Haircut", "{}"))

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	_, err := service.CreateBooking(&models.CreateBookingRequest{
		CustomerID: uuid.New().String(),
		ServiceID:  serviceID.String(),
		StartTime:  start.Format(time.RFC3339),
		EndTime:    start.Add(time.Hour).Format(time.RFC3339),
	})

	require.NoError(t, err)
	mailer.waitForDispatch(t)
}

func TestUpdateBookingStatus(t *testing.T) {
	service, mock, notifier, mailer, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	bookingID := uuid.New()
	existing := &models.Booking{
		ID:         bookingID,
		CustomerID: uuid.New(),
		ServiceID:  uuid.New(),
		StartTime:  time.Now().Add(24 * time.Hour),
		EndTime:    time.Now().Add(25 * time.Hour),
		Status:     models.BookingStatusPending,
	}

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(existing))

	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	booking, err := service.UpdateBookingStatus(bookingID, models.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

	mailer.waitForDispatch(t)
	assert.Contains(t, notifier.Events(), "bookings:UPDATE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingStatus_IllegalTransition(t *testing.T) {
	service, mock, _, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	bookingID := uuid.New()
	existing := &models.Booking{
		ID:         bookingID,
		CustomerID: uuid.New(),
		ServiceID:  uuid.New(),
		StartTime:  time.Now(),
		EndTime:    time.Now().Add(time.Hour),
		Status:     models.BookingStatusCompleted,
	}

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(existing))

	_, err := service.UpdateBookingStatus(bookingID, models.BookingStatusPending)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
}

func TestReleaseSlot_RegularBookingRejected(t *testing.T) {
	service, mock, _, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	bookingID := uuid.New()
	regular := &models.Booking{
		ID:         bookingID,
		CustomerID: uuid.New(),
		ProviderID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		ServiceID:  uuid.New(),
		StartTime:  time.Now(),
		EndTime:    time.Now().Add(time.Hour),
		Status:     models.BookingStatusConfirmed,
	}

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(regular))

	err := service.ReleaseSlot(bookingID)
	assert.ErrorIs(t, err, ErrNotBlockedSlot)
}

func TestReleaseSlot_BlockedSlotDeleted(t *testing.T) {
	service, mock, notifier, _, cleanup := setupBookingTest(t, nil)
	defer cleanup()

	staffID := uuid.New()
	bookingID := uuid.New()
	blocked := &models.Booking{
		ID:         bookingID,
		CustomerID: staffID,
		ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
		ServiceID:  uuid.New(),
		StartTime:  time.Now(),
		EndTime:    time.Now().Add(time.Hour),
		Status:     models.BookingStatusBlocked,
	}

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(bookingID).
		WillReturnRows(bookingRows(blocked))

	mock.ExpectExec("DELETE FROM bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.ReleaseSlot(bookingID)
	require.NoError(t, err)
	assert.Contains(t, notifier.Events(), "bookings:DELETE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanTransitionBooking(t *testing.T) {
	tests := []struct {
		name    string
		from    models.BookingStatus
		to      models.BookingStatus
		wantErr bool
	}{
		{"pending to confirmed", models.BookingStatusPending, models.BookingStatusConfirmed, false},
		{"pending to cancelled", models.BookingStatusPending, models.BookingStatusCancelled, false},
		{"confirmed to completed", models.BookingStatusConfirmed, models.BookingStatusCompleted, false},
		{"confirmed to cancelled", models.BookingStatusConfirmed, models.BookingStatusCancelled, false},
		{"cancelled reinstated", models.BookingStatusCancelled, models.BookingStatusPending, false},
		{"same status is a no-op", models.BookingStatusPending, models.BookingStatusPending, false},

		{"pending to completed skips confirmation", models.BookingStatusPending, models.BookingStatusCompleted, true},
		{"completed is terminal", models.BookingStatusCompleted, models.BookingStatusPending, true},
		{"blocked never transitions", models.BookingStatusBlocked, models.BookingStatusCancelled, true},
		{"cancelled to confirmed", models.BookingStatusCancelled, models.BookingStatusConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransitionBooking(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
