package services

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
)

const (
	// OTPLength is the length of the OTP code
	OTPLength = 6

	// OTPExpiryDuration is how long an OTP is valid (5 minutes)
	OTPExpiryDuration = 5 * time.Minute

	// MaxOTPAttempts is the maximum number of validation attempts
	MaxOTPAttempts = 3
)

// OTP purposes
const (
	OTPPurposeVerifyEmail = "verify_email"
	OTPPurposeRecovery    = "recovery"
)

var (
	// ErrOTPExpired indicates the OTP has expired
	ErrOTPExpired = fmt.Errorf("OTP has expired")

	// ErrOTPInvalid indicates the OTP is incorrect
	ErrOTPInvalid = fmt.Errorf("invalid OTP code")

	// ErrMaxAttemptsExceeded indicates too many failed validation attempts
	ErrMaxAttemptsExceeded = fmt.Errorf("maximum OTP validation attempts exceeded")

	// ErrNoOTPFound indicates no OTP exists for the email address
	ErrNoOTPFound = fmt.Errorf("no OTP found for this email address")

	// ErrOTPAlreadyUsed indicates the OTP has already been successfully validated
	ErrOTPAlreadyUsed = fmt.Errorf("OTP has already been used")
)

// OTPService handles OTP generation and validation
type OTPService struct {
	db database.DB
}

// NewOTPService creates a new OTP service
func NewOTPService(db database.DB) *OTPService {
	return &OTPService{
		db: db,
	}
}

// GenerateOTP generates a new 6-digit OTP for the given email address.
// It invalidates any existing OTPs for the address and stores IP/User-Agent
// for security tracking.
func (s *OTPService) GenerateOTP(email, purpose, ipAddress, userAgent string) (string, error) {
	// Invalidate any existing OTPs for this address
	if err := s.InvalidateOTP(email); err != nil {
		return "", fmt.Errorf("failed to invalidate existing OTP: %w", err)
	}

	// Generate random 6-digit OTP
	otp, err := generateRandomOTP()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	expiresAt := time.Now().Add(OTPExpiryDuration)

	query := `
		INSERT INTO otp_verifications (email, otp_code, purpose, expires_at, attempts, max_attempts, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
	`

	_, err = s.db.Exec(query, email, otp, purpose, expiresAt, MaxOTPAttempts, ipAddress, userAgent)
	if err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return otp, nil
}

// ValidateOTP validates an OTP for the given email address.
// Returns true if valid, false if invalid, and error if something went wrong.
func (s *OTPService) ValidateOTP(email, otp string) (bool, error) {
	otpRecord, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrNoOTPFound
		}
		return false, fmt.Errorf("failed to get OTP record: %w", err)
	}

	// Check if already verified
	if otpRecord.Verified {
		return false, ErrOTPAlreadyUsed
	}

	// Check if expired
	if time.Now().After(otpRecord.ExpiresAt) {
		return false, ErrOTPExpired
	}

	// Check if max attempts exceeded
	if otpRecord.Attempts >= MaxOTPAttempts {
		return false, ErrMaxAttemptsExceeded
	}

	// Increment attempts
	if err := s.incrementAttempts(email); err != nil {
		return false, fmt.Errorf("failed to increment attempts: %w", err)
	}

	// Validate OTP
	if otpRecord.OTPCode != otp {
		return false, ErrOTPInvalid
	}

	// Mark as verified
	if err := s.markAsVerified(email); err != nil {
		return false, fmt.Errorf("failed to mark OTP as verified: %w", err)
	}

	return true, nil
}

// InvalidateOTP invalidates any existing OTPs for the given email address
func (s *OTPService) InvalidateOTP(email string) error {
	query := `
		UPDATE otp_verifications
		SET verified = true
		WHERE email = $1 AND verified = false
	`

	_, err := s.db.Exec(query, email)
	if err != nil {
		return fmt.Errorf("failed to invalidate OTP: %w", err)
	}

	return nil
}

// GetRemainingAttempts returns the number of remaining validation attempts
func (s *OTPService) GetRemainingAttempts(email string) (int, error) {
	otpRecord, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNoOTPFound
		}
		return 0, fmt.Errorf("failed to get OTP record: %w", err)
	}

	remaining := MaxOTPAttempts - otpRecord.Attempts
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// GetOTPExpiry returns the expiry time for the OTP
func (s *OTPService) GetOTPExpiry(email string) (time.Time, error) {
	otpRecord, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, ErrNoOTPFound
		}
		return time.Time{}, fmt.Errorf("failed to get OTP record: %w", err)
	}

	return otpRecord.ExpiresAt, nil
}

// GetOTPPurpose returns the purpose for which the active OTP was issued
func (s *OTPService) GetOTPPurpose(email string) (string, error) {
	otpRecord, err := s.getOTPRecord(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNoOTPFound
		}
		return "", fmt.Errorf("failed to get OTP record: %w", err)
	}

	return otpRecord.Purpose, nil
}

// CleanupExpiredOTPs removes all expired OTP records from the database
func (s *OTPService) CleanupExpiredOTPs() (int64, error) {
	query := `
		DELETE FROM otp_verifications
		WHERE expires_at < $1
	`

	result, err := s.db.Exec(query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired OTPs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// getOTPRecord retrieves the OTP record for the given email address
func (s *OTPService) getOTPRecord(email string) (*models.OTPVerification, error) {
	query := `
		SELECT id, email, otp_code, purpose, created_at, expires_at, verified, verified_at, attempts, max_attempts, ip_address, user_agent
		FROM otp_verifications
		WHERE email = $1 AND verified = false
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp models.OTPVerification
	err := s.db.QueryRow(query, email).Scan(
		&otp.ID,
		&otp.Email,
		&otp.OTPCode,
		&otp.Purpose,
		&otp.CreatedAt,
		&otp.ExpiresAt,
		&otp.Verified,
		&otp.VerifiedAt,
		&otp.Attempts,
		&otp.MaxAttempts,
		&otp.IPAddress,
		&otp.UserAgent,
	)

	if err != nil {
		return nil, err
	}

	return &otp, nil
}

// incrementAttempts increments the validation attempts counter
func (s *OTPService) incrementAttempts(email string) error {
	query := `
		UPDATE otp_verifications
		SET attempts = attempts + 1
		WHERE email = $1 AND verified = false
	`

	_, err := s.db.Exec(query, email)
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	return nil
}

// markAsVerified marks the OTP as verified
func (s *OTPService) markAsVerified(email string) error {
	query := `
		UPDATE otp_verifications
		SET verified = true, verified_at = $1
		WHERE email = $2 AND verified = false
	`

	_, err := s.db.Exec(query, time.Now(), email)
	if err != nil {
		return fmt.Errorf("failed to mark OTP as verified: %w", err)
	}

	return nil
}

// generateRandomOTP generates a cryptographically secure random 6-digit OTP
func generateRandomOTP() (string, error) {
	max := big.NewInt(1000000) // 10^6
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	// Format as 6-digit string with leading zeros
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ResendOTP generates a new OTP for the email address
// This is an alias for GenerateOTP for clarity in API handlers
func (s *OTPService) ResendOTP(email, purpose, ipAddress, userAgent string) (string, error) {
	return s.GenerateOTP(email, purpose, ipAddress, userAgent)
}
