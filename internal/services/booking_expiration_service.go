package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
)

// ExpiredBookingStore cancels lapsed holds
type ExpiredBookingStore interface {
	CancelExpiredBookings(ctx context.Context, now time.Time) ([]models.Booking, error)
}

// PresenceSweeper drops stale visitor sessions
type PresenceSweeper interface {
	SweepExpired() int
}

// AttemptCleaner purges reservation attempts outside the rate limit window
type AttemptCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ExpirationConfig holds the sweeper schedules
type ExpirationConfig struct {
	BookingSweepSpec  string // robfig/cron spec, e.g. "@every 1m"
	PresenceSweepSpec string
	AttemptSweepSpec  string
	JobTimeout        time.Duration
}

// DefaultExpirationConfig returns default configuration
func DefaultExpirationConfig() ExpirationConfig {
	return ExpirationConfig{
		BookingSweepSpec:  "@every 1m",
		PresenceSweepSpec: "@every 1m",
		AttemptSweepSpec:  "@every 15m",
		JobTimeout:        30 * time.Second,
	}
}

// BookingExpirationService runs the scheduled cleanup jobs: lapsed
// pending_payment holds are cancelled and idle visitor sessions dropped
type BookingExpirationService struct {
	cron     *cron.Cron
	store    ExpiredBookingStore
	presence PresenceSweeper // optional
	attempts AttemptCleaner  // optional
	config   ExpirationConfig
	logger   *logrus.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastRun *sweepResult
}

type sweepResult struct {
	At        time.Time
	Cancelled int
	Err       error
}

// NewBookingExpirationService creates the service; call Start to schedule jobs
func NewBookingExpirationService(store ExpiredBookingStore, presence PresenceSweeper, config ExpirationConfig, logger *logrus.Logger) *BookingExpirationService {
	return &BookingExpirationService{
		cron:     cron.New(),
		store:    store,
		presence: presence,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules and starts all jobs
func (s *BookingExpirationService) Start() error {
	s.logger.Info("Starting expiration jobs...")

	// Job 1: cancel lapsed holds
	if _, err := s.cron.AddFunc(s.config.BookingSweepSpec, s.cancelExpiredJob); err != nil {
		return fmt.Errorf("failed to schedule expired hold job: %w", err)
	}
	s.logger.WithField("spec", s.config.BookingSweepSpec).Info("Scheduled: cancel expired holds")

	// Job 2: drop idle visitor sessions
	if s.presence != nil && s.config.PresenceSweepSpec != "" {
		if _, err := s.cron.AddFunc(s.config.PresenceSweepSpec, s.presenceSweepJob); err != nil {
			return fmt.Errorf("failed to schedule presence sweep job: %w", err)
		}
		s.logger.WithField("spec", s.config.PresenceSweepSpec).Info("Scheduled: presence sweep")
	}

	// Job 3: purge old reservation attempts
	if s.attempts != nil && s.config.AttemptSweepSpec != "" {
		if _, err := s.cron.AddFunc(s.config.AttemptSweepSpec, s.attemptCleanupJob); err != nil {
			return fmt.Errorf("failed to schedule attempt cleanup job: %w", err)
		}
		s.logger.WithField("spec", s.config.AttemptSweepSpec).Info("Scheduled: reservation attempt cleanup")
	}

	s.cron.Start()
	return nil
}

// SetAttemptCleaner registers the rate limiter whose rows are purged on
// AttemptSweepSpec. Must be called before Start.
func (s *BookingExpirationService) SetAttemptCleaner(cleaner AttemptCleaner) {
	s.attempts = cleaner
}

// Stop stops the scheduler and waits for a running job to finish
func (s *BookingExpirationService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiration jobs stopped")
}

func (s *BookingExpirationService) cancelExpiredJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cancel expired holds")
	}
}

func (s *BookingExpirationService) presenceSweepJob() {
	if removed := s.presence.SweepExpired(); removed > 0 {
		s.logger.WithField("removed", removed).Debug("[CRON] Presence sessions expired")
	}
}

func (s *BookingExpirationService) attemptCleanupJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()

	removed, err := s.attempts.CleanupExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to purge reservation attempts")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("[CRON] Reservation attempts purged")
	}
}

// RunOnce cancels every pending_payment booking whose hold has lapsed and
// returns how many were cancelled. Safe to run concurrently with itself.
func (s *BookingExpirationService) RunOnce(ctx context.Context) (int, error) {
	startTime := s.now()

	cancelled, err := s.store.CancelExpiredBookings(ctx, startTime)

	s.mu.Lock()
	s.lastRun = &sweepResult{At: startTime, Cancelled: len(cancelled), Err: err}
	s.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("failed to cancel expired bookings: %w", err)
	}

	for _, b := range cancelled {
		s.logger.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"room_id":    b.RoomID,
			"expires_at": b.ExpiresAt,
		}).Info("Hold expired, booking cancelled")
	}
	if len(cancelled) > 0 {
		s.logger.WithFields(logrus.Fields{
			"cancelled": len(cancelled),
			"duration":  time.Since(startTime).String(),
		}).Info("[CRON] Expired holds cancelled")
	}

	return len(cancelled), nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *BookingExpirationService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	status := map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun != nil {
		last := map[string]interface{}{
			"at":        s.lastRun.At,
			"cancelled": s.lastRun.Cancelled,
		}
		if s.lastRun.Err != nil {
			last["error"] = s.lastRun.Err.Error()
		}
		status["last_sweep"] = last
	}

	return status
}
