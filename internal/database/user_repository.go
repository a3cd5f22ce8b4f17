package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/slotline/booking-backend/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	   roles, location_id, status, email_verified, last_login_at,
	   created_at, updated_at`

// UserRepository handles database operations for the users table
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new customer account
func (r *UserRepository) CreateUser(email, passwordHash, firstName, lastName, phone string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, roles, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		RETURNING ` + userColumns

	id := uuid.New()
	roles := pq.StringArray{models.RoleCustomer}

	user, err := r.scanUser(r.db.QueryRow(
		query, id, strings.ToLower(email), passwordHash,
		nullString(firstName), nullString(lastName), nullString(phone), roles,
	))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ErrDuplicateEmail indicates the email is already registered
var ErrDuplicateEmail = fmt.Errorf("email already registered")

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := r.scanUser(r.db.QueryRow(query, strings.ToLower(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := r.scanUser(r.db.QueryRow(query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return user, nil
}

// UpdateProfile updates the user's contact fields and location affinity
func (r *UserRepository) UpdateProfile(userID uuid.UUID, firstName, lastName, phone string, locationID *uuid.UUID) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, phone = $3, location_id = $4, updated_at = $5
		WHERE id = $6
	`

	var locVal interface{}
	if locationID != nil {
		locVal = *locationID
	}

	result, err := r.db.Exec(query,
		nullString(firstName), nullString(lastName), nullString(phone),
		locVal, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// SetPassword replaces the user's password hash
func (r *UserRepository) SetPassword(userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// MarkEmailVerified flips the email_verified flag
func (r *UserRepository) MarkEmailVerified(userID uuid.UUID) error {
	query := `UPDATE users SET email_verified = true, updated_at = $1 WHERE id = $2`

	result, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// UpdateLastLogin records a successful sign-in
func (r *UserRepository) UpdateLastLogin(userID uuid.UUID) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`

	_, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// UpdateUserStatus changes the user's status (active/suspended)
func (r *UserRepository) UpdateUserStatus(userID uuid.UUID, status string) error {
	query := `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// AddUserRole appends a role if not already present
func (r *UserRepository) AddUserRole(userID uuid.UUID, role string) error {
	query := `
		UPDATE users
		SET roles = array_append(roles, $1), updated_at = $2
		WHERE id = $3 AND NOT ($1 = ANY(roles))
	`

	result, err := r.db.Exec(query, role, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found or role already present")
	}

	return nil
}

// RemoveUserRole removes a role from the user
func (r *UserRepository) RemoveUserRole(userID uuid.UUID, role string) error {
	query := `
		UPDATE users
		SET roles = array_remove(roles, $1), updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, role, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListProviders retrieves active users holding a bookable role, optionally
// filtered by location
func (r *UserRepository) ListProviders(locationID *uuid.UUID) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE status = 'active'
		  AND roles && $1
	`
	args := []interface{}{pq.StringArray(models.ProviderRoles)}

	if locationID != nil {
		query += ` AND location_id = $2`
		args = append(args, *locationID)
	}
	query += ` ORDER BY first_name, last_name`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// ListUsers retrieves users with pagination
func (r *UserRepository) ListUsers(limit, offset int) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// CountUsers returns the total number of users
func (r *UserRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// scanUser scans a single user row
func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Phone,
		&user.Roles, &user.LocationID, &user.Status,
		&user.EmailVerified, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// scanUsers scans multiple user rows
func (r *UserRepository) scanUsers(rows *sql.Rows) ([]models.User, error) {
	users := []models.User{}

	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Email, &user.PasswordHash,
			&user.FirstName, &user.LastName, &user.Phone,
			&user.Roles, &user.LocationID, &user.Status,
			&user.EmailVerified, &user.LastLoginAt,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
