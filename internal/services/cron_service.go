package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/slotline/booking-backend/internal/database"
)

// CronService manages scheduled background maintenance jobs
type CronService struct {
	cron       *cron.Cron
	otp        *OTPService
	rateLimits *RateLimitService
	sessions   *SessionService
	tokens     *database.RefreshTokenRepository
	audit      *AuditService
}

// NewCronService creates a new CronService
func NewCronService(
	otp *OTPService,
	rateLimits *RateLimitService,
	sessions *SessionService,
	tokens *database.RefreshTokenRepository,
	audit *AuditService,
) *CronService {
	// Create cron with seconds precision (optional)
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:       c,
		otp:        otp,
		rateLimits: rateLimits,
		sessions:   sessions,
		tokens:     tokens,
		audit:      audit,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	// Job 1: Mark stale sessions inactive every 5 minutes
	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc("0 */5 * * * *", s.sweepStaleSessionsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep job: %w", err)
	}
	log.Println("✓ Scheduled: Sweep stale sessions (every 5 minutes)")

	// Job 2: Expired credential cleanup hourly
	// "0 0 * * * *" = At the top of every hour
	_, err = s.cron.AddFunc("0 0 * * * *", s.cleanupExpiredCredentialsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule credential cleanup job: %w", err)
	}
	log.Println("✓ Scheduled: Cleanup expired OTPs, rate limits and tokens (hourly)")

	// Job 3: Purge old sessions and audit logs daily at 4 AM
	// "0 0 4 * * *" = At 4:00 AM every day
	_, err = s.cron.AddFunc("0 0 4 * * *", s.purgeOldRecordsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule purge job: %w", err)
	}
	log.Println("✓ Scheduled: Purge old sessions and audit logs (Daily at 4:00 AM)")

	// Start the cron scheduler
	s.cron.Start()
	log.Println("✓ Cron service started successfully")

	return nil
}

// Stop stops all cron jobs
func (s *CronService) Stop() {
	log.Println("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✓ Cron service stopped")
}

// sweepStaleSessionsJob marks sessions inactive once their activity window lapses
func (s *CronService) sweepStaleSessionsJob() {
	swept, err := s.sessions.SweepStale()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to sweep stale sessions: %v\n", err)
		return
	}

	if swept > 0 {
		log.Printf("[CRON] ✓ Marked %d sessions inactive\n", swept)
	}
}

// cleanupExpiredCredentialsJob removes expired OTPs, rate limit rows and refresh tokens
func (s *CronService) cleanupExpiredCredentialsJob() {
	log.Println("[CRON] Starting expired credential cleanup job...")
	startTime := time.Now()

	otps, err := s.otp.CleanupExpiredOTPs()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup expired OTPs: %v\n", err)
	}

	limits, err := s.rateLimits.CleanupExpiredRateLimits()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup expired rate limits: %v\n", err)
	}

	tokens, err := s.tokens.CleanupExpiredTokens()
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup expired refresh tokens: %v\n", err)
	}

	duration := time.Since(startTime)
	log.Printf("[CRON] ✓ Removed %d OTPs, %d rate limit rows, %d tokens in %v\n", otps, limits, tokens, duration)
}

// purgeOldRecordsJob removes inactive sessions and audit logs past retention
func (s *CronService) purgeOldRecordsJob() {
	log.Println("[CRON] Starting purge old records job...")
	startTime := time.Now()

	sessions, err := s.sessions.PurgeInactive(30 * 24 * time.Hour)
	if err != nil {
		log.Printf("[CRON ERROR] Failed to purge inactive sessions: %v\n", err)
	}

	logs, err := s.audit.CleanupOldAuditLogs(90 * 24 * time.Hour)
	if err != nil {
		log.Printf("[CRON ERROR] Failed to cleanup old audit logs: %v\n", err)
	}

	duration := time.Since(startTime)
	log.Printf("[CRON] ✓ Purged %d sessions and %d audit rows in %v\n", sessions, logs, duration)
}

// RunCleanupNow runs the credential cleanup job immediately (for testing)
func (s *CronService) RunCleanupNow() error {
	log.Println("[MANUAL] Running expired credential cleanup now...")
	s.cleanupExpiredCredentialsJob()
	return nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
