package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/staylong/rental-backend/internal/models"
)

const bookingColumns = `
	id, room_id, guest_id, start_date, end_date, duration_days,
	status, payment_status, payment_method, total_amount, rate_at_booking,
	expires_at, confirmed_at, cancellation_reason,
	receipt_sent, receipt_sent_at, contract_sent, contract_sent_at,
	created_at, updated_at`

// pgLockNotAvailable is raised when lock_timeout elapses
const pgLockNotAvailable = "55P03"

// BookingRepository handles booking database operations
type BookingRepository struct {
	db          DB
	lockTimeout time.Duration
}

// NewBookingRepository creates a new BookingRepository. lockTimeout bounds the
// wait for the room row lock taken when a booking is inserted.
func NewBookingRepository(db DB, lockTimeout time.Duration) *BookingRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &BookingRepository{db: db, lockTimeout: lockTimeout}
}

// ============================================================================
// READS
// ============================================================================

// GetBookingByID retrieves a booking by ID. Returns (nil, nil) if not found.
func (r *BookingRepository) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListActiveBookings returns the bookings of a room that still block dates at now:
// confirmed ones and pending ones whose hold has not lapsed.
func (r *BookingRepository) ListActiveBookings(ctx context.Context, roomID string, now time.Time) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1
		  AND (
			status = $2
			OR (status = $3 AND (expires_at IS NULL OR expires_at > $4))
		  )
		ORDER BY start_date`

	bookings := []models.Booking{}
	err := r.db.SelectContext(ctx, &bookings, query,
		roomID, models.BookingStatusConfirmed, models.BookingStatusPendingPayment, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}
	return bookings, nil
}

// ============================================================================
// WRITES
// ============================================================================

// CreateBookingWithGuest upserts the guest and inserts the pending booking in
// one transaction. The room row is locked for the duration and the overlap
// rule is re-evaluated inside the transaction, so concurrent processes cannot
// both insert overlapping bookings.
func (r *BookingRepository) CreateBookingWithGuest(ctx context.Context, info models.GuestInfo, booking *models.Booking, bufferDays int) (*models.Guest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Lock the room row
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	var lockedID string
	err = tx.QueryRowxContext(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, booking.RoomID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, mapLockError(err, "failed to lock room")
	}

	// 2. Overlap check with the cleaning buffer on both sides
	overlapQuery := `
		SELECT COUNT(*)
		FROM bookings
		WHERE room_id = $1
		  AND (
			status = $2
			OR (status = $3 AND (expires_at IS NULL OR expires_at > $4))
		  )
		  AND $5::date <= end_date + $7::int
		  AND start_date <= $6::date + $7::int`

	var overlapping int
	err = tx.QueryRowxContext(ctx, overlapQuery,
		booking.RoomID, models.BookingStatusConfirmed, models.BookingStatusPendingPayment, booking.CreatedAt,
		booking.StartDate, booking.EndDate, bufferDays,
	).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	if overlapping > 0 {
		return nil, models.ErrDatesUnavailable
	}

	// 3. Guest upsert
	guest, err := upsertGuest(ctx, tx, info)
	if err != nil {
		return nil, err
	}
	booking.GuestID = guest.ID

	// 4. Booking insert
	insertQuery := `
		INSERT INTO bookings (
			id, room_id, guest_id, start_date, end_date, duration_days,
			status, payment_status, payment_method, total_amount, rate_at_booking,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	_, err = tx.ExecContext(ctx, insertQuery,
		booking.ID, booking.RoomID, booking.GuestID, booking.StartDate, booking.EndDate, booking.DurationDays,
		booking.Status, booking.PaymentStatus, booking.PaymentMethod, booking.TotalAmount, booking.RateAtBooking,
		booking.ExpiresAt, booking.CreatedAt,
	)
	if err != nil {
		return nil, mapLockError(err, "failed to insert booking")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.UpdatedAt = booking.CreatedAt
	return guest, nil
}

// DeletePendingBooking deletes the booking only while it is still pending payment.
// Returns whether a row was deleted.
func (r *BookingRepository) DeletePendingBooking(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookings WHERE id = $1 AND status = $2`,
		id, models.BookingStatusPendingPayment,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ConfirmPendingBooking transitions pending_payment -> confirmed.
// Returns (nil, nil) when the booking was not pending (already confirmed, cancelled or missing).
func (r *BookingRepository) ConfirmPendingBooking(ctx context.Context, id string, now time.Time) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $2, payment_status = $3, confirmed_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + bookingColumns

	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query,
		id, models.BookingStatusConfirmed, models.PaymentStatusPaid, now, models.BookingStatusPendingPayment,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}
	return &booking, nil
}

// MarkDocumentSent flags the receipt or contract as delivered, once.
// Returns whether the flag changed.
func (r *BookingRepository) MarkDocumentSent(ctx context.Context, id string, kind models.DocumentKind, now time.Time) (bool, error) {
	var query string
	switch kind {
	case models.DocumentReceipt:
		query = `UPDATE bookings SET receipt_sent = TRUE, receipt_sent_at = $2, updated_at = $2
			WHERE id = $1 AND receipt_sent = FALSE`
	case models.DocumentContract:
		query = `UPDATE bookings SET contract_sent = TRUE, contract_sent_at = $2, updated_at = $2
			WHERE id = $1 AND contract_sent = FALSE`
	default:
		return false, models.ErrInvalidDocumentKind
	}

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s sent: %w", kind, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CancelExpiredBookings flips every pending booking whose hold lapsed before now
// to cancelled and returns them. Confirmed bookings are never touched.
func (r *BookingRepository) CancelExpiredBookings(ctx context.Context, now time.Time) ([]models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $1, cancellation_reason = $2, updated_at = $3
		WHERE status = $4
		  AND expires_at IS NOT NULL
		  AND expires_at < $3
		RETURNING ` + bookingColumns

	bookings := []models.Booking{}
	err := r.db.SelectContext(ctx, &bookings, query,
		models.BookingStatusCancelled, models.CancellationReasonHoldExpired, now, models.BookingStatusPendingPayment,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel expired bookings: %w", err)
	}
	return bookings, nil
}

// mapLockError turns a lock timeout into models.ErrBusy
func mapLockError(err error, msg string) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%s: %w", msg, models.ErrBusy)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
