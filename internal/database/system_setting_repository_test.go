package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSettingRepository_GetValues(t *testing.T) {
	db, mock := setupDBTest(t)
	repo := NewSystemSettingRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM system_settings\s+WHERE setting_key = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "setting_key", "setting_value", "description", "created_at", "updated_at",
		}).
			AddRow("s-1", models.SettingAutoSendReceipt, "true", nil, now, now).
			AddRow("s-2", models.SettingWhatsAppSenderNumber, "+525512345678", "sender", now, now))

	values, err := repo.GetValues(context.Background(), models.AdminSettingKeys)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		models.SettingAutoSendReceipt:      "true",
		models.SettingWhatsAppSenderNumber: "+525512345678",
	}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystemSettingRepository_SetValues(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes Only Given Keys", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewSystemSettingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO system_settings`).
			WithArgs(sqlmock.AnyArg(), models.SettingNotifyEmailOnBooking, "false").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO system_settings`).
			WithArgs(sqlmock.AnyArg(), models.SettingWhatsAppSenderNumber, "").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.SetValues(ctx, map[string]string{
			models.SettingWhatsAppSenderNumber: "",
			models.SettingNotifyEmailOnBooking: "false",
			"not_allowed":                      "x",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty Is No-op", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewSystemSettingRepository(db)

		require.NoError(t, repo.SetValues(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure Rolls Back", func(t *testing.T) {
		db, mock := setupDBTest(t)
		repo := NewSystemSettingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO system_settings`).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.SetValues(ctx, map[string]string{models.SettingAutoSendReceipt: "true"})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
