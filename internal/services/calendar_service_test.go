package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarFixture() (staffID uuid.UUID, staffByID map[uuid.UUID]*models.User, day time.Time) {
	staffID = uuid.New()
	staff := &models.User{
		ID:    staffID,
		Email: "staff@company.com",
		Roles: pq.StringArray{models.RoleStaff},
	}
	staffByID = map[uuid.UUID]*models.User{staffID: staff}
	day = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	return staffID, staffByID, day
}

func availableWindow(staffID uuid.UUID, day time.Time, from, to string) models.StaffAvailability {
	return models.StaffAvailability{
		ID:          uuid.New(),
		StaffID:     staffID,
		Date:        day,
		StartTime:   from,
		EndTime:     to,
		IsAvailable: true,
	}
}

func TestAssignResource_StaffColumn(t *testing.T) {
	staffID, staffByID, day := calendarFixture()
	svc := &models.Service{ID: uuid.New(), Name: "Haircut", StaffIDs: pq.StringArray{staffID.String()}}
	windows := []models.StaffAvailability{availableWindow(staffID, day, "09:00", "17:00")}

	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
		ServiceID:  svc.ID,
		StartTime:  day.Add(10 * time.Hour),
		EndTime:    day.Add(11 * time.Hour),
		Status:     models.BookingStatusConfirmed,
	}

	s := &CalendarService{}
	got := s.assignResource(booking, svc, staffByID, windows)
	assert.Equal(t, staffID.String(), got)
}

func TestAssignResource_GenericCases(t *testing.T) {
	staffID, staffByID, day := calendarFixture()
	staffed := &models.Service{ID: uuid.New(), Name: "Haircut", StaffIDs: pq.StringArray{staffID.String()}}
	unstaffed := &models.Service{ID: uuid.New(), Name: "Walk-in", StaffIDs: pq.StringArray{}}
	windows := []models.StaffAvailability{availableWindow(staffID, day, "09:00", "17:00")}

	baseBooking := func() *models.Booking {
		return &models.Booking{
			ID:         uuid.New(),
			CustomerID: uuid.New(),
			ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
			ServiceID:  staffed.ID,
			StartTime:  day.Add(10 * time.Hour),
			EndTime:    day.Add(11 * time.Hour),
			Status:     models.BookingStatusConfirmed,
		}
	}

	s := &CalendarService{}

	t.Run("service without staff", func(t *testing.T) {
		booking := baseBooking()
		got := s.assignResource(booking, unstaffed, staffByID, windows)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("unknown service", func(t *testing.T) {
		booking := baseBooking()
		got := s.assignResource(booking, nil, staffByID, windows)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("no provider on booking", func(t *testing.T) {
		booking := baseBooking()
		booking.ProviderID = uuid.NullUUID{}
		got := s.assignResource(booking, staffed, staffByID, windows)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("provider not a known staff member", func(t *testing.T) {
		booking := baseBooking()
		booking.ProviderID = uuid.NullUUID{UUID: uuid.New(), Valid: true}
		got := s.assignResource(booking, staffed, staffByID, windows)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("no availability window that day", func(t *testing.T) {
		booking := baseBooking()
		got := s.assignResource(booking, staffed, staffByID, nil)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("window does not cover booking", func(t *testing.T) {
		booking := baseBooking()
		narrow := []models.StaffAvailability{availableWindow(staffID, day, "09:00", "10:30")}
		got := s.assignResource(booking, staffed, staffByID, narrow)
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("window marked unavailable", func(t *testing.T) {
		booking := baseBooking()
		closed := availableWindow(staffID, day, "09:00", "17:00")
		closed.IsAvailable = false
		got := s.assignResource(booking, staffed, staffByID, []models.StaffAvailability{closed})
		assert.Equal(t, models.GenericResourceID, got)
	})

	t.Run("window on another date", func(t *testing.T) {
		booking := baseBooking()
		other := []models.StaffAvailability{availableWindow(staffID, day.AddDate(0, 0, 1), "09:00", "17:00")}
		got := s.assignResource(booking, staffed, staffByID, other)
		assert.Equal(t, models.GenericResourceID, got)
	})
}

func TestAssignResource_BlockedSlot(t *testing.T) {
	staffID, staffByID, day := calendarFixture()

	blocked := &models.Booking{
		ID:         uuid.New(),
		CustomerID: staffID,
		ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
		ServiceID:  uuid.New(),
		StartTime:  day.Add(12 * time.Hour),
		EndTime:    day.Add(13 * time.Hour),
		Status:     models.BookingStatusBlocked,
	}

	s := &CalendarService{}

	// Blocked slots land on their staff column even without availability
	got := s.assignResource(blocked, nil, staffByID, nil)
	assert.Equal(t, staffID.String(), got)
}

func TestHasCoveringWindow_ExactBoundaries(t *testing.T) {
	staffID, _, day := calendarFixture()
	windows := []models.StaffAvailability{availableWindow(staffID, day, "09:00", "17:00")}

	// Booking exactly filling the window is covered
	assert.True(t, hasCoveringWindow(staffID, day.Add(9*time.Hour), day.Add(17*time.Hour), windows))

	// One minute over either edge is not
	assert.False(t, hasCoveringWindow(staffID, day.Add(9*time.Hour-time.Minute), day.Add(10*time.Hour), windows))
	assert.False(t, hasCoveringWindow(staffID, day.Add(16*time.Hour), day.Add(17*time.Hour+time.Minute), windows))
}

func TestBuildView(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	service := NewCalendarService(
		database.NewBookingRepository(postgresDB),
		database.NewServiceRepository(postgresDB),
		database.NewUserRepository(postgresDB),
		database.NewAvailabilityRepository(postgresDB),
	)

	staffID := uuid.New()
	serviceID := uuid.New()
	customerID := uuid.New()
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	bookingCols := []string{
		"id", "customer_id", "provider_id", "service_id", "location_id",
		"start_time", "end_time", "status", "notes", "created_at", "updated_at",
	}
	goodID := uuid.New()
	malformedID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(goodID, customerID, staffID, serviceID, nil,
				day.Add(10*time.Hour), day.Add(11*time.Hour), "confirmed", nil, time.Now(), time.Now()).
			AddRow(malformedID, customerID, staffID, serviceID, nil,
				day.Add(11*time.Hour), day.Add(11*time.Hour), "confirmed", nil, time.Now(), time.Now()))

	userCols := []string{
		"id", "email", "password_hash", "first_name", "last_name", "phone",
		"roles", "location_id", "status", "email_verified", "last_login_at",
		"created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(staffID, "staff@company.com", "hash", "Ann", "Lee", nil,
				"{staff}", nil, "active", true, nil, time.Now(), time.Now()))

	availabilityCols := []string{
		"id", "staff_id", "date", "start_time", "end_time",
		"is_available", "location_id", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM staff_availability").
		WillReturnRows(sqlmock.NewRows(availabilityCols).
			AddRow(uuid.New(), staffID, day, "09:00", "17:00", true, nil, time.Now(), time.Now()))

	serviceCols := []string{
		"id", "name", "description", "price", "duration_minutes",
		"staff_ids", "is_active", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM services").
		WillReturnRows(sqlmock.NewRows(serviceCols).
			AddRow(serviceID, "Haircut", nil, 25.0, 60, "{"+staffID.String()+"}", true, time.Now(), time.Now()))

	view, err := service.BuildView(day, day.AddDate(0, 0, 1), nil)
	require.NoError(t, err)

	// The malformed event is dropped, not an error
	require.Len(t, view.Events, 1)
	assert.Equal(t, goodID.String(), view.Events[0].ID)
	assert.Equal(t, staffID.String(), view.Events[0].ResourceID)
	assert.Equal(t, "Haircut", view.Events[0].Title)

	// One staff column plus the generic bucket
	require.Len(t, view.Resources, 2)
	assert.Equal(t, models.GenericResourceID, view.Resources[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
