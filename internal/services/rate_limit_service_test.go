package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/staylong/rental-backend/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitTest(t *testing.T) (*RateLimitService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}
	service := NewRateLimitService(postgresDB, DefaultRateLimitConfig())

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

func TestCheckReservationRateLimit_NoRequests(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	email := "guest@example.com"
	ip := "192.168.1.1"

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs(email, "email", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(0, time.Now()))

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs(ip, "ip", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(0, time.Now()))

	err := service.CheckReservationRateLimit(context.Background(), email, ip)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckReservationRateLimit_EmailExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	lastRequest := time.Now().Add(-5 * time.Minute)

	// Email is normalized before lookup
	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs("guest@example.com", "email", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(5, lastRequest))

	err := service.CheckReservationRateLimit(context.Background(), " Guest@Example.com ", "192.168.1.1")
	require.Error(t, err)

	rateLimitErr, ok := err.(*RateLimitError)
	require.True(t, ok, "Error should be RateLimitError")
	assert.Equal(t, "email", rateLimitErr.Type)
	assert.Contains(t, rateLimitErr.Message, "Too many reservation attempts for this email")
	assert.True(t, rateLimitErr.RetryAfter.After(time.Now()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckReservationRateLimit_IPExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	email := "guest@example.com"
	ip := "192.168.1.1"
	lastRequest := time.Now().Add(-30 * time.Minute)

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs(email, "email", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(2, lastRequest))

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs(ip, "ip", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(20, lastRequest))

	err := service.CheckReservationRateLimit(context.Background(), email, ip)
	require.Error(t, err)

	rateLimitErr, ok := err.(*RateLimitError)
	require.True(t, ok, "Error should be RateLimitError")
	assert.Equal(t, "ip", rateLimitErr.Type)
	assert.Contains(t, rateLimitErr.Message, "Too many reservation attempts from this IP address")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckReservationRateLimit_DatabaseError(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	email := "guest@example.com"

	mock.ExpectQuery("SELECT COUNT(.+) FROM reservation_attempts").
		WithArgs(email, "email", sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)

	err := service.CheckReservationRateLimit(context.Background(), email, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check email rate limit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReservationAttempt_Success(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO reservation_attempts").
		WithArgs("guest@example.com", "email").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("INSERT INTO reservation_attempts").
		WithArgs("192.168.1.1", "ip").
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := service.RecordReservationAttempt(context.Background(), "GUEST@example.com", "192.168.1.1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReservationAttempt_IPOnly(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO reservation_attempts").
		WithArgs("192.168.1.1", "ip").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.RecordReservationAttempt(context.Background(), "", "192.168.1.1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpired(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM reservation_attempts").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 10))

	rowsAffected, err := service.CleanupExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(10), rowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultRateLimitConfig(t *testing.T) {
	config := DefaultRateLimitConfig()

	assert.Equal(t, 5, config.MaxEmailRequests)
	assert.Equal(t, 20, config.MaxIPRequests)
	assert.Equal(t, time.Hour, config.Window)
}
