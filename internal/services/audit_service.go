package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/utils"
)

// AuditService handles audit logging for security and booking events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID             // Can be nil for pre-authentication events
	Action     string                 // Action type (e.g., "sign_in", "booking_created")
	EntityType string                 // Type of entity affected (e.g., "user", "booking")
	EntityID   *uuid.UUID             // ID of the affected entity (can be nil)
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Additional details as JSONB
}

// LogOTPRequest logs an OTP generation request
func (s *AuditService) LogOTPRequest(email, ipAddress, userAgent string, success bool, reason string) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"email":       email,
		"success":     success,
		"device_info": deviceInfo,
	}

	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(AuditEvent{
		UserID:     nil, // No user ID yet (pre-authentication)
		Action:     "otp_request",
		EntityType: "otp",
		EntityID:   nil,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogOTPVerification logs an OTP verification attempt
func (s *AuditService) LogOTPVerification(userID *uuid.UUID, email string, success bool, attempts int, ipAddress, userAgent, failureReason string) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"email":       email,
		"success":     success,
		"attempts":    attempts,
		"device_info": deviceInfo,
	}

	if !success && failureReason != "" {
		details["failure_reason"] = failureReason
	}

	action := "otp_verify_failed"
	if success {
		action = "otp_verify_success"
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "otp",
		EntityID:   nil,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRateLimitViolation logs a rate limit violation event
func (s *AuditService) LogRateLimitViolation(email, ipAddress, userAgent, limitType string, retryAfter time.Time) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"email":       email,
		"limit_type":  limitType, // "email" or "ip"
		"retry_after": retryAfter,
		"device_info": deviceInfo,
	}

	return s.logEvent(AuditEvent{
		UserID:     nil,
		Action:     "rate_limit_violation",
		EntityType: "rate_limit",
		EntityID:   nil,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogSignIn logs a successful sign-in event
func (s *AuditService) LogSignIn(userID uuid.UUID, email, ipAddress, userAgent string) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"email":       email,
		"device_info": deviceInfo,
	}

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "sign_in",
		EntityType: "user",
		EntityID:   &userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogSignOut logs a sign-out event
func (s *AuditService) LogSignOut(userID uuid.UUID, ipAddress, userAgent string, logoutAll bool) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"logout_all":  logoutAll,
		"device_info": deviceInfo,
	}

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "sign_out",
		EntityType: "user",
		EntityID:   &userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogTokenRefresh logs a refresh token usage event
func (s *AuditService) LogTokenRefresh(userID uuid.UUID, ipAddress, userAgent string, success bool) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	action := "token_refresh_success"
	if !success {
		action = "token_refresh_failed"
	}

	details := map[string]interface{}{
		"success":     success,
		"device_info": deviceInfo,
	}

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "token",
		EntityID:   nil,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogBookingEvent logs a booking mutation (create, update, status change)
func (s *AuditService) LogBookingEvent(userID *uuid.UUID, bookingID uuid.UUID, action, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "booking",
		EntityID:   &bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogSettingChange logs an admin settings change
func (s *AuditService) LogSettingChange(userID uuid.UUID, category, key, oldValue, newValue, ipAddress, userAgent string) error {
	details := map[string]interface{}{
		"category":  category,
		"key":       key,
		"old_value": oldValue,
		"new_value": newValue,
	}

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "setting_changed",
		EntityType: "setting",
		EntityID:   nil,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent is the internal method that writes to the audit_logs table
func (s *AuditService) logEvent(event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	_, err = s.db.Exec(
		query,
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		detailsJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves recent audit events for a user
func (s *AuditService) GetRecentEvents(userID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT action, entity_type, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	events := []map[string]interface{}{}
	for rows.Next() {
		var action, entityType, ipAddress, userAgent string
		var detailsJSON []byte
		var createdAt time.Time

		err := rows.Scan(&action, &entityType, &ipAddress, &userAgent, &detailsJSON, &createdAt)
		if err != nil {
			continue
		}

		var details map[string]interface{}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &details)
		}

		events = append(events, map[string]interface{}{
			"action":      action,
			"entity_type": entityType,
			"ip_address":  ipAddress,
			"user_agent":  userAgent,
			"details":     details,
			"created_at":  createdAt,
		})
	}

	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
