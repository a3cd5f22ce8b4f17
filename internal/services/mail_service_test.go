package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/pkg/mail"
	"github.com/slotline/booking-backend/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func setupMailTest(t *testing.T) (*MailService, *fakeSender, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}

	sender := &fakeSender{}
	service := NewMailService(
		sender,
		database.NewUserRepository(postgresDB),
		database.NewServiceRepository(postgresDB),
		validator.NewEmailValidator(true),
	)

	cleanup := func() {
		db.Close()
	}

	return service, sender, mock, cleanup
}

func userRow(id uuid.UUID, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "phone",
		"roles", "location_id", "status", "email_verified", "last_login_at",
		"created_at", "updated_at",
	}).AddRow(id, email, "hash", "Jo", "Smith", nil, "{customer}", nil,
		"active", true, nil, time.Now(), time.Now())
}

func mailServiceRow(id uuid.UUID, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "price", "duration_minutes",
		"staff_ids", "is_active", "created_at", "updated_at",
	}).AddRow(id, name, "desc", 45.0, 60, "{}", true, time.Now(), time.Now())
}

func TestSendBookingCreated(t *testing.T) {
	service, sender, mock, cleanup := setupMailTest(t)
	defer cleanup()

	customerID := uuid.New()
	providerID := uuid.New()
	serviceID := uuid.New()

	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProviderID: uuid.NullUUID{UUID: providerID, Valid: true},
		ServiceID:  serviceID,
		StartTime:  time.Date(2026, 9, 20, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 9, 20, 11, 0, 0, 0, time.UTC),
		Status:     models.BookingStatusPending,
	}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(customerID).
		WillReturnRows(userRow(customerID, "customer@company.com"))
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(providerID).
		WillReturnRows(userRow(providerID, "staff@company.com"))
	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs(serviceID).
		WillReturnRows(mailServiceRow(serviceID, "Haircut"))

	err := service.SendBookingCreated(booking)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.ElementsMatch(t, []string{"customer@company.com", "staff@company.com"}, msg.To)
	assert.Contains(t, msg.Subject, "Haircut")
	assert.Contains(t, msg.Body, "Haircut")
}

func TestSendBookingCreated_BlockedSlotSkipsMail(t *testing.T) {
	service, sender, _, cleanup := setupMailTest(t)
	defer cleanup()

	staffID := uuid.New()
	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: staffID,
		ProviderID: uuid.NullUUID{UUID: staffID, Valid: true},
		ServiceID:  uuid.New(),
		Status:     models.BookingStatusBlocked,
	}

	err := service.SendBookingCreated(booking)
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Empty(t, sender.sent)
}

func TestNotifyBookingCreated_FiltersAndDedupes(t *testing.T) {
	service, sender, mock, cleanup := setupMailTest(t)
	defer cleanup()

	serviceID := uuid.New()
	userID := uuid.New()

	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		ServiceID:  serviceID,
		StartTime:  time.Date(2026, 9, 20, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 9, 20, 11, 0, 0, 0, time.UTC),
		Status:     models.BookingStatusConfirmed,
	}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(userID).
		WillReturnRows(userRow(userID, "staff@company.com"))
	mock.ExpectQuery("SELECT (.+) FROM services").
		WithArgs(serviceID).
		WillReturnRows(mailServiceRow(serviceID, "Consultation"))

	custom := []string{
		"STAFF@company.com", // duplicate of the resolved user, other case
		"extra@company.com", // kept
		"fake@example.com",  // fake domain, dropped
		"not-an-email",      // malformed, dropped
	}

	err := service.NotifyBookingCreated(booking.ID, booking, []string{userID.String()}, custom)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.ElementsMatch(t, []string{"staff@company.com", "extra@company.com"}, sender.sent[0].To)
}

func TestNotifyBookingStatusChanged_NoValidRecipients(t *testing.T) {
	service, sender, _, cleanup := setupMailTest(t)
	defer cleanup()

	booking := &models.Booking{ID: uuid.New(), CustomerID: uuid.New(), ServiceID: uuid.New()}

	err := service.NotifyBookingStatusChanged(booking,
		models.BookingStatusPending, models.BookingStatusConfirmed,
		nil, []string{"fake@example.com"})

	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Empty(t, sender.sent)
}
