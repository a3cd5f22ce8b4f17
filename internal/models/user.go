package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NewNullString builds a NullString that is null for the empty string
func NewNullString(s string) NullString {
	if s == "" {
		return NullString{}
	}
	return NullString{sql.NullString{String: s, Valid: true}}
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// User roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// ProviderRoles are the roles that can be booked for services
var ProviderRoles = []string{RoleStaff, RoleManager, RoleAdmin}

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Email         string         `json:"email" db:"email"`
	PasswordHash  string         `json:"-" db:"password_hash"` // Never expose
	FirstName     NullString     `json:"first_name,omitempty" db:"first_name"`
	LastName      NullString     `json:"last_name,omitempty" db:"last_name"`
	Phone         NullString     `json:"phone,omitempty" db:"phone"`
	Roles         pq.StringArray `json:"roles" db:"roles"`
	LocationID    uuid.NullUUID  `json:"location_id,omitempty" db:"location_id"`
	Status        string         `json:"status" db:"status"`
	EmailVerified bool           `json:"email_verified" db:"email_verified"`
	LastLoginAt   NullTime       `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// IsProvider reports whether the user can be booked for services
func (u *User) IsProvider() bool {
	for _, role := range u.Roles {
		for _, provider := range ProviderRoles {
			if role == provider {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the user carries the given role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OTPVerification represents an OTP verification record
type OTPVerification struct {
	ID          int64      `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	OTPCode     string     `json:"-" db:"otp_code"` // Never expose in JSON
	Purpose     string     `json:"purpose" db:"purpose"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	Verified    bool       `json:"verified" db:"verified"`
	VerifiedAt  NullTime   `json:"verified_at,omitempty" db:"verified_at"`
	Attempts    int        `json:"attempts" db:"attempts"`
	MaxAttempts int        `json:"max_attempts" db:"max_attempts"`
	IPAddress   NullString `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent   NullString `json:"user_agent,omitempty" db:"user_agent"`
}

// OTPRateLimit represents rate limiting for OTP requests
type OTPRateLimit struct {
	ID            int64     `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	RequestCount  int       `json:"request_count" db:"request_count"`
	WindowStart   time.Time `json:"window_start" db:"window_start"`
	BlockedUntil  NullTime  `json:"blocked_until,omitempty" db:"blocked_until"`
	LastRequestAt time.Time `json:"last_request_at" db:"last_request_at"`
}

// RefreshToken represents a JWT refresh token
type RefreshToken struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash  string     `json:"-" db:"token_hash"` // Never expose
	IPAddress  NullString `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  NullString `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	LastUsedAt NullTime   `json:"last_used_at,omitempty" db:"last_used_at"`
	Revoked    bool       `json:"revoked" db:"revoked"`
	RevokedAt  NullTime   `json:"revoked_at,omitempty" db:"revoked_at"`
}

// UserSession represents an active user session, shown in the admin
// "connected users" report
type UserSession struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Browser        NullString `json:"browser,omitempty" db:"browser"`
	Platform       NullString `json:"platform,omitempty" db:"platform"`
	IPAddress      NullString `json:"ip_address,omitempty" db:"ip_address"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ConnectedUser is a row in the admin connected-users report
type ConnectedUser struct {
	SessionID      uuid.UUID  `json:"session_id" db:"session_id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Email          string     `json:"email" db:"email"`
	FirstName      NullString `json:"first_name,omitempty" db:"first_name"`
	LastName       NullString `json:"last_name,omitempty" db:"last_name"`
	Browser        NullString `json:"browser,omitempty" db:"browser"`
	Platform       NullString `json:"platform,omitempty" db:"platform"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64         `json:"id" db:"id"`
	UserID     uuid.NullUUID `json:"user_id,omitempty" db:"user_id"`
	Action     string        `json:"action" db:"action"`
	EntityType NullString    `json:"entity_type,omitempty" db:"entity_type"`
	EntityID   uuid.NullUUID `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  NullString    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  NullString    `json:"user_agent,omitempty" db:"user_agent"`
	Details    NullString    `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// SignUpRequest is the payload for email/password registration
type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// SignInRequest is the payload for email/password login
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest is the payload for OTP verification
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// RecoveryRequest asks for a password recovery mail
type RecoveryRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password recovery
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// RefreshTokenRequest is the payload for rotating a token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPair is an issued access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
}

// AuthResponse is returned after a successful sign-in or verification
type AuthResponse struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// UpdateProfileRequest is the payload for profile edits
type UpdateProfileRequest struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Phone      string  `json:"phone"`
	LocationID *string `json:"location_id"`
}
