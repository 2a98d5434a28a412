package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staylong/rental-backend/internal/database"
	"github.com/staylong/rental-backend/internal/models"
)

// RateLimitService throttles reservation attempts per guest email and client IP
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
	now    func() time.Time
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxEmailRequests int           // Max reservation attempts per guest email
	MaxIPRequests    int           // Max reservation attempts per client IP
	Window           time.Duration // Time window shared by both limits
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEmailRequests: 5,         // 5 attempts
		MaxIPRequests:    20,        // 20 attempts
		Window:           time.Hour, // per hour
	}
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
		now:    time.Now,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

const (
	identifierEmail = "email"
	identifierIP    = "ip"
)

// CheckReservationRateLimit checks if an email or IP has exceeded its attempt budget
func (s *RateLimitService) CheckReservationRateLimit(ctx context.Context, email, ip string) error {
	email = models.NormalizeEmail(email)

	if email != "" {
		count, lastRequest, err := s.getRequestCount(ctx, email, identifierEmail)
		if err != nil {
			return fmt.Errorf("failed to check email rate limit: %w", err)
		}

		if count >= s.config.MaxEmailRequests {
			retryAfter := lastRequest.Add(s.config.Window)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many reservation attempts for this email. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       identifierEmail,
			}
		}
	}

	if ip != "" {
		count, lastRequest, err := s.getRequestCount(ctx, ip, identifierIP)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= s.config.MaxIPRequests {
			retryAfter := lastRequest.Add(s.config.Window)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many reservation attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       identifierIP,
			}
		}
	}

	return nil
}

// getRequestCount gets the number of attempts within the window
func (s *RateLimitService) getRequestCount(ctx context.Context, identifier, identifierType string) (int, time.Time, error) {
	windowStart := s.now().Add(-s.config.Window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM reservation_attempts
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRowxContext(ctx, query, identifier, identifierType, windowStart).Scan(&count, &lastRequest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

// RecordReservationAttempt records one attempt against both identifiers
func (s *RateLimitService) RecordReservationAttempt(ctx context.Context, email, ip string) error {
	if email = models.NormalizeEmail(email); email != "" {
		if err := s.recordRequest(ctx, email, identifierEmail); err != nil {
			return fmt.Errorf("failed to record email attempt: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordRequest(ctx, ip, identifierIP); err != nil {
			return fmt.Errorf("failed to record IP attempt: %w", err)
		}
	}

	return nil
}

func (s *RateLimitService) recordRequest(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO reservation_attempts (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, identifier, identifierType)
	return err
}

// CleanupExpired removes attempts older than the window
func (s *RateLimitService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoffTime := s.now().Add(-s.config.Window)

	result, err := s.db.ExecContext(ctx, `DELETE FROM reservation_attempts WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
