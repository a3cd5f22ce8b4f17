package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/internal/utils"
)

// SessionService tracks browser sessions for the connected-users report
type SessionService struct {
	sessions     *database.UserSessionRepository
	activeWindow time.Duration
}

// NewSessionService creates a new session service. activeMinutes is how
// recently a session must have been touched to count as connected.
func NewSessionService(sessions *database.UserSessionRepository, activeMinutes int) *SessionService {
	if activeMinutes <= 0 {
		activeMinutes = 15
	}
	return &SessionService{
		sessions:     sessions,
		activeWindow: time.Duration(activeMinutes) * time.Minute,
	}
}

// Touch records activity for a user from the given client. Called on
// authenticated requests; failures are logged, never surfaced.
func (s *SessionService) Touch(userID uuid.UUID, userAgent, ipAddress string) {
	device := utils.ParseUserAgent(userAgent)
	if device.IsBot {
		return
	}

	_, err := s.sessions.TouchSession(userID, device.Browser, device.Platform, ipAddress)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to touch user session")
	}
}

// EndSessions deactivates all sessions for a user, used on sign-out
func (s *SessionService) EndSessions(userID uuid.UUID) error {
	if err := s.sessions.DeactivateUserSessions(userID); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	return nil
}

// ConnectedUsers returns users with activity inside the active window
func (s *SessionService) ConnectedUsers() ([]models.ConnectedUser, error) {
	return s.sessions.ListConnectedUsers(s.activeWindow)
}

// SweepStale marks sessions idle beyond the active window as inactive and
// returns how many were updated
func (s *SessionService) SweepStale() (int64, error) {
	return s.sessions.MarkStaleSessionsInactive(s.activeWindow)
}

// PurgeInactive deletes inactive session rows older than the given age
func (s *SessionService) PurgeInactive(olderThan time.Duration) (int64, error) {
	return s.sessions.CleanupInactiveSessions(olderThan)
}
