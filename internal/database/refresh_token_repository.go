package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

// RefreshTokenRepository handles refresh token database operations
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db: db,
	}
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// StoreRefreshToken stores a refresh token in the database
func (r *RefreshTokenRepository) StoreRefreshToken(
	userID uuid.UUID,
	token string,
	ipAddress, userAgent string,
	expiresAt time.Time,
) error {
	tokenHash := hashToken(token)

	query := `
		INSERT INTO refresh_tokens (
			user_id, token_hash, ip_address, user_agent, expires_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(
		query,
		userID,
		tokenHash,
		nullString(ipAddress),
		nullString(userAgent),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves a refresh token by its hash
func (r *RefreshTokenRepository) GetRefreshToken(token string) (*models.RefreshToken, error) {
	tokenHash := hashToken(token)

	var refreshToken models.RefreshToken

	query := `
		SELECT id, user_id, token_hash, ip_address, user_agent,
		       created_at, expires_at, last_used_at, revoked, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	err := r.db.QueryRow(query, tokenHash).Scan(
		&refreshToken.ID,
		&refreshToken.UserID,
		&refreshToken.TokenHash,
		&refreshToken.IPAddress,
		&refreshToken.UserAgent,
		&refreshToken.CreatedAt,
		&refreshToken.ExpiresAt,
		&refreshToken.LastUsedAt,
		&refreshToken.Revoked,
		&refreshToken.RevokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Token not found
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &refreshToken, nil
}

// IsTokenRevoked checks if a refresh token is revoked
func (r *RefreshTokenRepository) IsTokenRevoked(token string) (bool, error) {
	refreshToken, err := r.GetRefreshToken(token)
	if err != nil {
		return false, err
	}

	if refreshToken == nil {
		return true, nil // Token not found, consider it revoked
	}

	return refreshToken.Revoked, nil
}

// IsTokenExpired checks if a refresh token is expired
func (r *RefreshTokenRepository) IsTokenExpired(token string) (bool, error) {
	refreshToken, err := r.GetRefreshToken(token)
	if err != nil {
		return false, err
	}

	if refreshToken == nil {
		return true, nil // Token not found, consider it expired
	}

	return refreshToken.ExpiresAt.Before(time.Now()), nil
}

// RevokeToken revokes a specific refresh token
func (r *RefreshTokenRepository) RevokeToken(token string) error {
	tokenHash := hashToken(token)

	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE token_hash = $2 AND revoked = FALSE
	`

	result, err := r.db.Exec(query, time.Now(), tokenHash)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("token not found or already revoked")
	}

	return nil
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *RefreshTokenRepository) RevokeAllUserTokens(userID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    revoked_at = $1
		WHERE user_id = $2 AND revoked = FALSE
	`

	_, err := r.db.Exec(query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to revoke all user tokens: %w", err)
	}

	return nil
}

// UpdateLastUsed updates the last_used_at timestamp for a token
func (r *RefreshTokenRepository) UpdateLastUsed(token string) error {
	tokenHash := hashToken(token)

	query := `
		UPDATE refresh_tokens
		SET last_used_at = $1
		WHERE token_hash = $2
	`

	_, err := r.db.Exec(query, time.Now(), tokenHash)
	if err != nil {
		return fmt.Errorf("failed to update last used timestamp: %w", err)
	}

	return nil
}

// CleanupExpiredTokens removes expired refresh tokens
func (r *RefreshTokenRepository) CleanupExpiredTokens() (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`

	result, err := r.db.Exec(query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// CountUserTokens counts active tokens for a user
func (r *RefreshTokenRepository) CountUserTokens(userID uuid.UUID) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
	`

	err := r.db.QueryRow(query, userID, time.Now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count user tokens: %w", err)
	}

	return count, nil
}
