package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/pkg/lease"
	"github.com/staylong/rental-backend/pkg/validator"
)

// SettingsStore reads and writes the key/value settings table
type SettingsStore interface {
	GetValues(ctx context.Context, keys []string) (map[string]string, error)
	SetValues(ctx context.Context, values map[string]string) error
}

// SettingsService applies partial updates to the shared admin settings
type SettingsService struct {
	store  SettingsStore
	locker lease.Locker
	phone  *validator.PhoneValidator
	logger *logrus.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(store SettingsStore, locker lease.Locker, logger *logrus.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		locker: locker,
		phone:  validator.NewPhoneValidator(),
		logger: logger,
	}
}

// GetSettings returns the current settings, with defaults for missing keys
func (s *SettingsService) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	values, err := s.store.GetValues(ctx, models.AdminSettingKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	settings := models.AdminSettingsFromValues(values)
	return &settings, nil
}

// UpdateSettings writes only the fields present in patch, so two admins
// editing different fields never overwrite each other.
func (s *SettingsService) UpdateSettings(ctx context.Context, patch models.AdminSettingsPatch) (*models.AdminSettings, error) {
	values, err := s.patchValues(patch)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return s.GetSettings(ctx)
	}

	release, err := acquireLease(ctx, s.locker, lease.SettingsKey, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.store.SetValues(ctx, values); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	keys := make([]string, 0, len(values))
	for _, key := range models.AdminSettingKeys {
		if _, ok := values[key]; ok {
			keys = append(keys, key)
		}
	}
	s.logger.WithField("keys", keys).Info("Admin settings updated")

	return s.GetSettings(ctx)
}

// patchValues converts a patch into storage values, validating the sender number
func (s *SettingsService) patchValues(patch models.AdminSettingsPatch) (map[string]string, error) {
	values := make(map[string]string)

	setBool := func(key string, v *bool) {
		if v != nil {
			values[key] = strconv.FormatBool(*v)
		}
	}
	setBool(models.SettingNotifyEmailOnBooking, patch.NotifyEmailOnBooking)
	setBool(models.SettingNotifyWhatsAppOnBooking, patch.NotifyWhatsAppOnBooking)
	setBool(models.SettingNotifyOnBankTransfer, patch.NotifyOnBankTransfer)
	setBool(models.SettingNotifyOnPaymentConfirmed, patch.NotifyOnPaymentConfirmed)
	setBool(models.SettingAutoSendReceipt, patch.AutoSendReceipt)

	if patch.WhatsAppSenderNumber != nil {
		raw := strings.TrimSpace(*patch.WhatsAppSenderNumber)
		if raw == "" {
			// Empty clears the override
			values[models.SettingWhatsAppSenderNumber] = ""
		} else {
			normalized, err := s.phone.Validate(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrInvalidPhone, err)
			}
			values[models.SettingWhatsAppSenderNumber] = normalized
		}
	}

	return values, nil
}
