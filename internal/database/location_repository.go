package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

// LocationRepository handles database operations for the locations table
type LocationRepository struct {
	db DB
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create creates a new location
func (r *LocationRepository) Create(location *models.Location) error {
	query := `
		INSERT INTO locations (id, name, address, phone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		location.ID, location.Name, location.Address, location.Phone, location.IsActive,
	).Scan(&location.CreatedAt, &location.UpdatedAt)
}

// GetByID retrieves a location by ID
func (r *LocationRepository) GetByID(locationID uuid.UUID) (*models.Location, error) {
	query := `
		SELECT id, name, address, phone, is_active, created_at, updated_at
		FROM locations
		WHERE id = $1
	`

	location := &models.Location{}
	err := r.db.QueryRow(query, locationID).Scan(
		&location.ID, &location.Name, &location.Address, &location.Phone,
		&location.IsActive, &location.CreatedAt, &location.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return location, nil
}

// List retrieves all locations
func (r *LocationRepository) List(activeOnly bool) ([]models.Location, error) {
	query := `
		SELECT id, name, address, phone, is_active, created_at, updated_at
		FROM locations
	`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var location models.Location
		err := rows.Scan(
			&location.ID, &location.Name, &location.Address, &location.Phone,
			&location.IsActive, &location.CreatedAt, &location.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	return locations, rows.Err()
}

// Update updates a location
func (r *LocationRepository) Update(location *models.Location) error {
	query := `
		UPDATE locations
		SET name = $2, address = $3, phone = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		location.ID, location.Name, location.Address, location.Phone, location.IsActive,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("location not found")
	}

	return nil
}
