package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staylong/rental-backend/internal/models"
)

// SystemSettingRepository handles database operations for system_settings table
type SystemSettingRepository struct {
	db DB
}

// NewSystemSettingRepository creates a new SystemSettingRepository
func NewSystemSettingRepository(db DB) *SystemSettingRepository {
	return &SystemSettingRepository{db: db}
}

// GetValues returns the stored values for keys. Missing keys are absent from the map.
func (r *SystemSettingRepository) GetValues(ctx context.Context, keys []string) (map[string]string, error) {
	query := `
		SELECT id, setting_key, setting_value, description, created_at, updated_at
		FROM system_settings
		WHERE setting_key = ANY($1)
	`

	settings := []models.SystemSetting{}
	if err := r.db.SelectContext(ctx, &settings, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.SettingKey] = s.SettingValue
	}
	return values, nil
}

// SetValues writes the given keys in one transaction, creating rows as needed.
// Keys not in values are left untouched.
func (r *SystemSettingRepository) SetValues(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO system_settings (id, setting_key, setting_value, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (setting_key) DO UPDATE SET
			setting_value = EXCLUDED.setting_value,
			updated_at = NOW()
	`

	for _, key := range models.AdminSettingKeys {
		value, ok := values[key]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), key, value); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", key, err)
		}
	}

	return tx.Commit()
}
