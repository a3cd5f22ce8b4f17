package database

import (
	"database/sql"
	"strconv"

	"github.com/slotline/booking-backend/internal/models"
)

// SettingRepository handles database operations for the settings table
type SettingRepository struct {
	db DB
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetAll retrieves all settings
func (r *SettingRepository) GetAll() ([]models.Setting, error) {
	query := `
		SELECT id, category, key, value, updated_by, created_at, updated_at
		FROM settings
		ORDER BY category, key
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSettings(rows)
}

// GetByCategory retrieves settings in one category
func (r *SettingRepository) GetByCategory(category string) ([]models.Setting, error) {
	query := `
		SELECT id, category, key, value, updated_by, created_at, updated_at
		FROM settings
		WHERE category = $1
		ORDER BY key
	`

	rows, err := r.db.Query(query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSettings(rows)
}

// GetByKey retrieves a setting by category and key
func (r *SettingRepository) GetByKey(category, key string) (*models.Setting, error) {
	query := `
		SELECT id, category, key, value, updated_by, created_at, updated_at
		FROM settings
		WHERE category = $1 AND key = $2
	`

	var setting models.Setting
	err := r.db.QueryRow(query, category, key).Scan(
		&setting.ID, &setting.Category, &setting.Key, &setting.Value,
		&setting.UpdatedBy, &setting.CreatedAt, &setting.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &setting, nil
}

// Update updates a setting's value
func (r *SettingRepository) Update(category, key, value, updatedBy string) error {
	query := `
		UPDATE settings
		SET value = $1, updated_by = $2, updated_at = NOW()
		WHERE category = $3 AND key = $4
	`

	result, err := r.db.Exec(query, value, nullString(updatedBy), category, key)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetIntValue retrieves a setting as an integer with a fallback
func (r *SettingRepository) GetIntValue(category, key string, defaultValue int) int {
	setting, err := r.GetByKey(category, key)
	if err != nil {
		return defaultValue
	}

	value, err := strconv.Atoi(setting.Value)
	if err != nil {
		return defaultValue
	}

	return value
}

// GetStringValue retrieves a setting as a string with a fallback
func (r *SettingRepository) GetStringValue(category, key, defaultValue string) string {
	setting, err := r.GetByKey(category, key)
	if err != nil {
		return defaultValue
	}
	return setting.Value
}

// scanSettings scans setting rows
func (r *SettingRepository) scanSettings(rows *sql.Rows) ([]models.Setting, error) {
	settings := []models.Setting{}
	for rows.Next() {
		var setting models.Setting
		err := rows.Scan(
			&setting.ID, &setting.Category, &setting.Key, &setting.Value,
			&setting.UpdatedBy, &setting.CreatedAt, &setting.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}
