package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingBooking(now time.Time) models.Booking {
	expires := now.Add(time.Hour)
	return models.Booking{
		ID:            "b-1",
		RoomID:        "room-1",
		GuestID:       "g-1",
		StartDate:     date("2025-01-10"),
		EndDate:       date("2025-02-09"),
		DurationDays:  30,
		Status:        models.BookingStatusPendingPayment,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodStripe,
		TotalAmount:   5000,
		RateAtBooking: 5000,
		ExpiresAt:     &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func guestRow(id, email string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "full_name", "email", "phone", "document_type", "document_number", "nationality",
		"created_at", "updated_at",
	}).AddRow(id, "Ana Ruiz", email, "+525512345678", "passport", "X123", "MX", now, now)
}

func TestGetBookingByID(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	ctx := context.Background()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		b := pendingBooking(now)
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs("b-1").
			WillReturnRows(addBookingRow(sqlmock.NewRows(bookingRowColumns), b))

		got, err := repo.GetBookingByID(ctx, "b-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "room-1", got.RoomID)
		assert.Equal(t, models.BookingStatusPendingPayment, got.Status)
		assert.Equal(t, date("2025-02-09"), got.EndDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))

		got, err := repo.GetBookingByID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListActiveBookings(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	now := time.Now()

	b := pendingBooking(now)
	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE room_id = \$1`).
		WithArgs("room-1", "confirmed", "pending_payment", now).
		WillReturnRows(addBookingRow(sqlmock.NewRows(bookingRowColumns), b))

	bookings, err := repo.ListActiveBookings(context.Background(), "room-1", now)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingWithGuest(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	info := models.GuestInfo{FullName: "Ana Ruiz", Email: "Ana@Example.com", Phone: "+525512345678"}

	t.Run("Success", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewBookingRepository(db, 2*time.Second)
		b := pendingBooking(now)
		b.GuestID = ""

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '2000ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM rooms WHERE id = \$1 FOR UPDATE`).
			WithArgs("room-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM bookings`).
			WithArgs("room-1", "confirmed", "pending_payment", now, b.StartDate, b.EndDate, 2).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO guests`).
			WithArgs(sqlmock.AnyArg(), "Ana Ruiz", "ana@example.com", "+525512345678", "", "", "").
			WillReturnRows(guestRow("g-9", "ana@example.com", now))
		mock.ExpectExec(`INSERT INTO bookings`).
			WithArgs("b-1", "room-1", "g-9", b.StartDate, b.EndDate, 30,
				"pending_payment", "pending", "stripe", 5000.0, 5000.0, sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		guest, err := repo.CreateBookingWithGuest(ctx, info, &b, 2)
		require.NoError(t, err)
		assert.Equal(t, "g-9", guest.ID)
		assert.Equal(t, "g-9", b.GuestID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Overlap Rolls Back", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewBookingRepository(db, time.Second)
		b := pendingBooking(now)

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM rooms`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		_, err := repo.CreateBookingWithGuest(ctx, info, &b, 2)
		assert.ErrorIs(t, err, models.ErrDatesUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Room Missing", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewBookingRepository(db, time.Second)
		b := pendingBooking(now)

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM rooms`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.CreateBookingWithGuest(ctx, info, &b, 2)
		assert.ErrorIs(t, err, models.ErrRoomNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lock Timeout Is Busy", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewBookingRepository(db, time.Second)
		b := pendingBooking(now)

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM rooms`).
			WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
		mock.ExpectRollback()

		_, err := repo.CreateBookingWithGuest(ctx, info, &b, 2)
		assert.ErrorIs(t, err, models.ErrBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert Failure Rolls Back", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewBookingRepository(db, time.Second)
		b := pendingBooking(now)

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM rooms`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("room-1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO guests`).
			WillReturnRows(guestRow("g-9", "ana@example.com", now))
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("connection reset"))
		mock.ExpectRollback()

		_, err := repo.CreateBookingWithGuest(ctx, info, &b, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert booking")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeletePendingBooking(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1 AND status = \$2`).
		WithArgs("b-1", "pending_payment").
		WillReturnResult(sqlmock.NewResult(0, 1))
	deleted, err := repo.DeletePendingBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec(`DELETE FROM bookings`).
		WithArgs("b-1", "pending_payment").
		WillReturnResult(sqlmock.NewResult(0, 0))
	deleted, err = repo.DeletePendingBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPendingBooking(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	ctx := context.Background()
	now := time.Now()

	t.Run("Transitions", func(t *testing.T) {
		b := pendingBooking(now)
		b.Status = models.BookingStatusConfirmed
		b.PaymentStatus = models.PaymentStatusPaid
		b.ConfirmedAt = &now

		mock.ExpectQuery(`UPDATE bookings\s+SET status = \$2, payment_status = \$3, confirmed_at = \$4`).
			WithArgs("b-1", "confirmed", "paid", now, "pending_payment").
			WillReturnRows(addBookingRow(sqlmock.NewRows(bookingRowColumns), b))

		got, err := repo.ConfirmPendingBooking(ctx, "b-1", now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.BookingStatusConfirmed, got.Status)
		assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	})

	t.Run("Not Pending", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs("b-1", "confirmed", "paid", now, "pending_payment").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))

		got, err := repo.ConfirmPendingBooking(ctx, "b-1", now)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDocumentSent(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec(`UPDATE bookings SET receipt_sent = TRUE`).
		WithArgs("b-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.MarkDocumentSent(ctx, "b-1", models.DocumentReceipt, now)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(`UPDATE bookings SET contract_sent = TRUE`).
		WithArgs("b-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.MarkDocumentSent(ctx, "b-1", models.DocumentContract, now)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.MarkDocumentSent(ctx, "b-1", models.DocumentKind("invoice"), now)
	assert.ErrorIs(t, err, models.ErrInvalidDocumentKind)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelExpiredBookings(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewBookingRepository(db, time.Second)
	now := time.Now()

	expired := pendingBooking(now.Add(-2 * time.Hour))
	expired.Status = models.BookingStatusCancelled
	reason := models.CancellationReasonHoldExpired
	expired.CancellationReason = &reason

	mock.ExpectQuery(`UPDATE bookings\s+SET status = \$1, cancellation_reason = \$2`).
		WithArgs("cancelled", "hold_expired", now, "pending_payment").
		WillReturnRows(addBookingRow(sqlmock.NewRows(bookingRowColumns), expired))

	bookings, err := repo.CancelExpiredBookings(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingStatusCancelled, bookings[0].Status)
	assert.Equal(t, "hold_expired", *bookings[0].CancellationReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
