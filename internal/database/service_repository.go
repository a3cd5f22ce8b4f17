package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

const serviceColumns = `id, name, description, price, duration_minutes,
	   staff_ids, is_active, created_at, updated_at`

// ServiceRepository handles database operations for the services table
type ServiceRepository struct {
	db DB
}

// NewServiceRepository creates a new ServiceRepository
func NewServiceRepository(db DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create creates a new service
func (r *ServiceRepository) Create(service *models.Service) error {
	query := `
		INSERT INTO services (id, name, description, price, duration_minutes, staff_ids, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		service.ID, service.Name, service.Description, service.Price,
		service.DurationMinutes, service.StaffIDs, service.IsActive,
	).Scan(&service.CreatedAt, &service.UpdatedAt)
}

// GetByID retrieves a service by ID
func (r *ServiceRepository) GetByID(serviceID uuid.UUID) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	return r.scanService(r.db.QueryRow(query, serviceID))
}

// GetByName retrieves a service by its exact name
func (r *ServiceRepository) GetByName(name string) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE name = $1`

	return r.scanService(r.db.QueryRow(query, name))
}

// List retrieves services, optionally restricted to active ones
func (r *ServiceRepository) List(activeOnly bool) ([]models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		var service models.Service
		err := rows.Scan(
			&service.ID, &service.Name, &service.Description, &service.Price,
			&service.DurationMinutes, &service.StaffIDs, &service.IsActive,
			&service.CreatedAt, &service.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	return services, rows.Err()
}

// Update updates a service
func (r *ServiceRepository) Update(service *models.Service) error {
	query := `
		UPDATE services
		SET name = $2, description = $3, price = $4, duration_minutes = $5,
			staff_ids = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		service.ID, service.Name, service.Description, service.Price,
		service.DurationMinutes, service.StaffIDs, service.IsActive,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("service not found")
	}

	return nil
}

// Deactivate soft-deletes a service
func (r *ServiceRepository) Deactivate(serviceID uuid.UUID) error {
	query := `UPDATE services SET is_active = false, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, serviceID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("service not found")
	}

	return nil
}

// scanService scans a single service
func (r *ServiceRepository) scanService(row scanner) (*models.Service, error) {
	service := &models.Service{}

	err := row.Scan(
		&service.ID, &service.Name, &service.Description, &service.Price,
		&service.DurationMinutes, &service.StaffIDs, &service.IsActive,
		&service.CreatedAt, &service.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, err
	}

	return service, nil
}
