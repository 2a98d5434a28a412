package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func setupDBTest(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

var bookingRowColumns = []string{
	"id", "room_id", "guest_id", "start_date", "end_date", "duration_days",
	"status", "payment_status", "payment_method", "total_amount", "rate_at_booking",
	"expires_at", "confirmed_at", "cancellation_reason",
	"receipt_sent", "receipt_sent_at", "contract_sent", "contract_sent_at",
	"created_at", "updated_at",
}

func addBookingRow(rows *sqlmock.Rows, b models.Booking) *sqlmock.Rows {
	return rows.AddRow(
		b.ID, b.RoomID, b.GuestID, b.StartDate, b.EndDate, b.DurationDays,
		string(b.Status), string(b.PaymentStatus), string(b.PaymentMethod), b.TotalAmount, b.RateAtBooking,
		b.ExpiresAt, b.ConfirmedAt, b.CancellationReason,
		b.ReceiptSent, b.ReceiptSentAt, b.ContractSent, b.ContractSentAt,
		b.CreatedAt, b.UpdatedAt,
	)
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
