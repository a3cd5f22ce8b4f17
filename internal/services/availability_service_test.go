package services

import (
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

func setupAvailabilityTest(t *testing.T) (*AvailabilityService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	service := NewAvailabilityService(
		database.NewAvailabilityRepository(postgresDB),
		database.NewUserRepository(postgresDB),
		"08:00", "20:00",
	)

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

func TestMarkMonth_OnlyRemainingDays(t *testing.T) {
	service, mock, cleanup := setupAvailabilityTest(t)
	defer cleanup()

	// Frozen clock: mid-month
	service.now = func() time.Time {
		return time.Date(2026, 9, 15, 13, 30, 0, 0, time.UTC)
	}

	staffID := uuid.New()

	mock.ExpectExec("INSERT INTO staff_availability").
		WithArgs(staffID,
			time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), // from: today, not the 1st
			time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), // to: last day of month
			"09:00", "18:00", true).
		WillReturnResult(sqlmock.NewResult(0, 16))

	updated, err := service.MarkMonth(&models.MarkMonthRequest{
		StaffID:     staffID.String(),
		Month:       "2026-09",
		IsAvailable: true,
		StartTime:   "09:00",
		EndTime:     "18:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMonth_FutureMonthWholeMonth(t *testing.T) {
	service, mock, cleanup := setupAvailabilityTest(t)
	defer cleanup()

	service.now = func() time.Time {
		return time.Date(2026, 9, 15, 13, 30, 0, 0, time.UTC)
	}

	staffID := uuid.New()

	mock.ExpectExec("INSERT INTO staff_availability").
		WithArgs(staffID,
			time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC),
			"08:00", "20:00", false). // defaults used when times omitted
		WillReturnResult(sqlmock.NewResult(0, 31))

	updated, err := service.MarkMonth(&models.MarkMonthRequest{
		StaffID:     staffID.String(),
		Month:       "2026-10",
		IsAvailable: false,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(31), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMonth_PastMonthRejected(t *testing.T) {
	service, _, cleanup := setupAvailabilityTest(t)
	defer cleanup()

	service.now = func() time.Time {
		return time.Date(2026, 9, 15, 13, 30, 0, 0, time.UTC)
	}

	_, err := service.MarkMonth(&models.MarkMonthRequest{
		StaffID:     uuid.New().String(),
		Month:       "2026-08",
		IsAvailable: true,
	})

	assert.ErrorIs(t, err, ErrMonthInPast)
}

func TestMarkMonth_InvalidWindow(t *testing.T) {
	service, _, cleanup := setupAvailabilityTest(t)
	defer cleanup()

	_, err := service.MarkMonth(&models.MarkMonthRequest{
		StaffID:     uuid.New().String(),
		Month:       "2026-10",
		IsAvailable: true,
		StartTime:   "18:00",
		EndTime:     "09:00",
	})

	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestSetWindow_InvalidClock(t *testing.T) {
	service, _, cleanup := setupAvailabilityTest(t)
	defer cleanup()

	_, err := service.SetWindow(&models.UpsertAvailabilityRequest{
		StaffID:   uuid.New().String(),
		Date:      "2026-09-20",
		StartTime: "9am",
		EndTime:   "5pm",
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start time")
}
