package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

// UserSessionRepository handles user session database operations
type UserSessionRepository struct {
	db DB
}

// NewUserSessionRepository creates a new user session repository
func NewUserSessionRepository(db DB) *UserSessionRepository {
	return &UserSessionRepository{
		db: db,
	}
}

// TouchSession creates a session row for the user, or refreshes the
// existing active one that matches the same browser/platform/IP.
func (r *UserSessionRepository) TouchSession(
	userID uuid.UUID,
	browser, platform, ipAddress string,
) (*models.UserSession, error) {
	existing, err := r.findActiveSession(userID, browser, platform, ipAddress)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing session: %w", err)
	}

	if existing != nil {
		return r.refreshSession(existing.ID)
	}

	query := `
		INSERT INTO user_sessions (
			id, user_id, browser, platform, ip_address,
			last_activity_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, browser, platform, ip_address,
			last_activity_at, is_active, created_at, updated_at
	`

	session := &models.UserSession{}
	now := time.Now()

	err = r.db.QueryRow(
		query,
		uuid.New(),
		userID,
		nullString(browser),
		nullString(platform),
		nullString(ipAddress),
		now,  // last_activity_at
		true, // is_active
		now,  // created_at
		now,  // updated_at
	).Scan(
		&session.ID,
		&session.UserID,
		&session.Browser,
		&session.Platform,
		&session.IPAddress,
		&session.LastActivityAt,
		&session.IsActive,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// findActiveSession looks up an active session matching the client fingerprint
func (r *UserSessionRepository) findActiveSession(
	userID uuid.UUID,
	browser, platform, ipAddress string,
) (*models.UserSession, error) {
	query := `
		SELECT id, user_id, browser, platform, ip_address,
			last_activity_at, is_active, created_at, updated_at
		FROM user_sessions
		WHERE user_id = $1
		  AND browser IS NOT DISTINCT FROM $2
		  AND platform IS NOT DISTINCT FROM $3
		  AND ip_address IS NOT DISTINCT FROM $4
		  AND is_active = true
		ORDER BY last_activity_at DESC
		LIMIT 1
	`

	session := &models.UserSession{}
	err := r.db.QueryRow(
		query,
		userID,
		nullString(browser),
		nullString(platform),
		nullString(ipAddress),
	).Scan(
		&session.ID,
		&session.UserID,
		&session.Browser,
		&session.Platform,
		&session.IPAddress,
		&session.LastActivityAt,
		&session.IsActive,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// refreshSession bumps last_activity_at on an existing session
func (r *UserSessionRepository) refreshSession(sessionID uuid.UUID) (*models.UserSession, error) {
	query := `
		UPDATE user_sessions
		SET last_activity_at = $2,
		    updated_at = $2,
		    is_active = true
		WHERE id = $1
		RETURNING id, user_id, browser, platform, ip_address,
			last_activity_at, is_active, created_at, updated_at
	`

	session := &models.UserSession{}
	err := r.db.QueryRow(query, sessionID, time.Now()).Scan(
		&session.ID,
		&session.UserID,
		&session.Browser,
		&session.Platform,
		&session.IPAddress,
		&session.LastActivityAt,
		&session.IsActive,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return session, nil
}

// DeactivateUserSessions marks all of a user's sessions inactive (logout)
func (r *UserSessionRepository) DeactivateUserSessions(userID uuid.UUID) error {
	query := `
		UPDATE user_sessions
		SET is_active = false,
		    updated_at = $1
		WHERE user_id = $2
	`

	_, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user sessions: %w", err)
	}

	return nil
}

// ListConnectedUsers returns users with an active session touched within the window
func (r *UserSessionRepository) ListConnectedUsers(activeWithin time.Duration) ([]models.ConnectedUser, error) {
	cutoff := time.Now().Add(-activeWithin)

	query := `
		SELECT s.id AS session_id, s.user_id, u.email, u.first_name, u.last_name,
		       s.browser, s.platform, s.last_activity_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.is_active = true AND s.last_activity_at >= $1
		ORDER BY s.last_activity_at DESC
	`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected users: %w", err)
	}
	defer rows.Close()

	users := []models.ConnectedUser{}
	for rows.Next() {
		var user models.ConnectedUser
		err := rows.Scan(
			&user.SessionID,
			&user.UserID,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&user.Browser,
			&user.Platform,
			&user.LastActivityAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// MarkStaleSessionsInactive deactivates sessions with no recent activity
func (r *UserSessionRepository) MarkStaleSessionsInactive(idleFor time.Duration) (int64, error) {
	cutoff := time.Now().Add(-idleFor)

	query := `
		UPDATE user_sessions
		SET is_active = false,
		    updated_at = NOW()
		WHERE is_active = true AND last_activity_at < $1
	`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// CleanupInactiveSessions removes inactive sessions older than specified duration
func (r *UserSessionRepository) CleanupInactiveSessions(olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM user_sessions
		WHERE is_active = false AND updated_at < $1
	`

	result, err := r.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup inactive sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// nullString returns sql.NullString for empty strings
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
