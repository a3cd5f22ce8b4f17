package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

const availabilityColumns = `id, staff_id, date, start_time, end_time,
	   is_available, location_id, created_at, updated_at`

// AvailabilityRepository handles database operations for the
// staff_availability table
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert inserts or replaces the window for a staff member on one date
func (r *AvailabilityRepository) Upsert(a *models.StaffAvailability) error {
	query := `
		INSERT INTO staff_availability (id, staff_id, date, start_time, end_time, is_available, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (staff_id, date)
		DO UPDATE SET start_time = $4, end_time = $5, is_available = $6,
			location_id = $7, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return r.db.QueryRow(
		query,
		id, a.StaffID, a.Date, a.StartTime, a.EndTime, a.IsAvailable, a.LocationID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByStaffAndDate retrieves the window for a staff member on a date
func (r *AvailabilityRepository) GetByStaffAndDate(staffID uuid.UUID, date time.Time) (*models.StaffAvailability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM staff_availability
		WHERE staff_id = $1 AND date = $2
	`

	return r.scanAvailability(r.db.QueryRow(query, staffID, date))
}

// ListByRange retrieves windows for all staff within a date range,
// optionally filtered by location
func (r *AvailabilityRepository) ListByRange(from, to time.Time, locationID *uuid.UUID) ([]models.StaffAvailability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM staff_availability
		WHERE date >= $1 AND date <= $2
	`
	args := []interface{}{from, to}

	if locationID != nil {
		query += ` AND location_id = $3`
		args = append(args, *locationID)
	}
	query += ` ORDER BY date, staff_id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAvailabilities(rows)
}

// ListByStaff retrieves windows for one staff member within a date range
func (r *AvailabilityRepository) ListByStaff(staffID uuid.UUID, from, to time.Time) ([]models.StaffAvailability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM staff_availability
		WHERE staff_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.db.Query(query, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAvailabilities(rows)
}

// SetAvailableRange sets is_available uniformly for a staff member's dates
// in [from, to], creating rows with the given window where none exist
func (r *AvailabilityRepository) SetAvailableRange(staffID uuid.UUID, from, to time.Time, available bool, startTime, endTime string) (int64, error) {
	query := `
		INSERT INTO staff_availability (id, staff_id, date, start_time, end_time, is_available)
		SELECT gen_random_uuid(), $1, d::date, $4, $5, $6
		FROM generate_series($2::date, $3::date, '1 day') AS d
		ON CONFLICT (staff_id, date)
		DO UPDATE SET is_available = $6, updated_at = NOW()
	`

	result, err := r.db.Exec(query, staffID, from, to, startTime, endTime, available)
	if err != nil {
		return 0, fmt.Errorf("failed to set availability range: %w", err)
	}

	return result.RowsAffected()
}

// Delete removes a window
func (r *AvailabilityRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM staff_availability WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("availability window not found")
	}

	return nil
}

// scanAvailability scans a single window
func (r *AvailabilityRepository) scanAvailability(row scanner) (*models.StaffAvailability, error) {
	a := &models.StaffAvailability{}

	err := row.Scan(
		&a.ID, &a.StaffID, &a.Date, &a.StartTime, &a.EndTime,
		&a.IsAvailable, &a.LocationID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// scanAvailabilities scans multiple windows from rows
func (r *AvailabilityRepository) scanAvailabilities(rows *sql.Rows) ([]models.StaffAvailability, error) {
	windows := []models.StaffAvailability{}

	for rows.Next() {
		var a models.StaffAvailability
		err := rows.Scan(
			&a.ID, &a.StaffID, &a.Date, &a.StartTime, &a.EndTime,
			&a.IsAvailable, &a.LocationID, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		windows = append(windows, a)
	}

	return windows, rows.Err()
}
