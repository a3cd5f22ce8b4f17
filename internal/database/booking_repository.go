package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

const bookingColumns = `id, customer_id, provider_id, service_id, location_id,
	   start_time, end_time, status, notes, created_at, updated_at`

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create creates a new booking
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, customer_id, provider_id, service_id, location_id,
			start_time, end_time, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.CustomerID, booking.ProviderID, booking.ServiceID,
		booking.LocationID, booking.StartTime, booking.EndTime,
		booking.Status, booking.Notes,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	return err
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// ListByRange retrieves bookings overlapping a time range, optionally
// filtered by location
func (r *BookingRepository) ListByRange(start, end time.Time, locationID *uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE start_time < $2 AND end_time > $1
	`
	args := []interface{}{start, end}

	if locationID != nil {
		query += ` AND location_id = $3`
		args = append(args, *locationID)
	}
	query += ` ORDER BY start_time`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListByCustomer retrieves all bookings for a customer
func (r *BookingRepository) ListByCustomer(customerID uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY start_time DESC
	`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListByProvider retrieves non-cancelled bookings assigned to a provider
// within a time range
func (r *BookingRepository) ListByProvider(providerID uuid.UUID, start, end time.Time) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1
		  AND status != 'cancelled'
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.db.Query(query, providerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// FindConflicts returns non-cancelled bookings for a provider that overlap
// the given range, excluding one booking id (zero UUID to exclude none)
func (r *BookingRepository) FindConflicts(providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1
		  AND status != 'cancelled'
		  AND start_time < $3 AND end_time > $2
		  AND id != $4
		ORDER BY start_time
	`

	rows, err := r.db.Query(query, providerID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// Update updates a booking's schedule, assignment and notes
func (r *BookingRepository) Update(booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET provider_id = $2, start_time = $3, end_time = $4, notes = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		booking.ID, booking.ProviderID, booking.StartTime, booking.EndTime,
		booking.Notes,
	).Scan(&booking.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("booking not found")
	}

	return err
}

// UpdateStatus updates the booking status
func (r *BookingRepository) UpdateStatus(bookingID uuid.UUID, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// Delete removes a blocked slot row. Regular bookings are cancelled, never
// deleted.
func (r *BookingRepository) Delete(bookingID uuid.UUID) error {
	query := `DELETE FROM bookings WHERE id = $1 AND status = 'blocked'`

	result, err := r.db.Exec(query, bookingID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("blocked slot not found")
	}

	return nil
}

// CountByStatus returns booking counts grouped by status within a range
func (r *BookingRepository) CountByStatus(start, end time.Time) (map[models.BookingStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM bookings
		WHERE start_time >= $1 AND start_time < $2
		GROUP BY status
	`

	rows, err := r.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.BookingStatus]int{}
	for rows.Next() {
		var status models.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}

	err := row.Scan(
		&booking.ID, &booking.CustomerID, &booking.ProviderID,
		&booking.ServiceID, &booking.LocationID,
		&booking.StartTime, &booking.EndTime, &booking.Status,
		&booking.Notes, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// scanBookings scans multiple bookings from rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID, &booking.CustomerID, &booking.ProviderID,
			&booking.ServiceID, &booking.LocationID,
			&booking.StartTime, &booking.EndTime, &booking.Status,
			&booking.Notes, &booking.CreatedAt, &booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
