package models

import (
	"strconv"
	"time"
)

// SystemSetting is one row of the key/value settings table
type SystemSetting struct {
	ID           string    `json:"id" db:"id"`
	SettingKey   string    `json:"setting_key" db:"setting_key"`
	SettingValue string    `json:"setting_value" db:"setting_value"`
	Description  *string   `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Setting keys that make up AdminSettings. Anything else in the table is not
// writable through the settings API.
const (
	SettingNotifyEmailOnBooking     = "notify_email_on_booking"
	SettingNotifyWhatsAppOnBooking  = "notify_whatsapp_on_booking"
	SettingNotifyOnBankTransfer     = "notify_on_bank_transfer"
	SettingNotifyOnPaymentConfirmed = "notify_on_payment_confirmed"
	SettingAutoSendReceipt          = "auto_send_receipt"
	SettingWhatsAppSenderNumber     = "whatsapp_sender_number"
)

// AdminSettingKeys lists every key backing AdminSettings
var AdminSettingKeys = []string{
	SettingNotifyEmailOnBooking,
	SettingNotifyWhatsAppOnBooking,
	SettingNotifyOnBankTransfer,
	SettingNotifyOnPaymentConfirmed,
	SettingAutoSendReceipt,
	SettingWhatsAppSenderNumber,
}

// AdminSettings is the shared back-office configuration record
type AdminSettings struct {
	NotifyEmailOnBooking     bool   `json:"notify_email_on_booking"`
	NotifyWhatsAppOnBooking  bool   `json:"notify_whatsapp_on_booking"`
	NotifyOnBankTransfer     bool   `json:"notify_on_bank_transfer"`
	NotifyOnPaymentConfirmed bool   `json:"notify_on_payment_confirmed"`
	AutoSendReceipt          bool   `json:"auto_send_receipt"`
	WhatsAppSenderNumber     string `json:"whatsapp_sender_number"`
}

// DefaultAdminSettings returns the values used for keys missing from storage
func DefaultAdminSettings() AdminSettings {
	return AdminSettings{
		NotifyEmailOnBooking:     true,
		NotifyWhatsAppOnBooking:  true,
		NotifyOnBankTransfer:     true,
		NotifyOnPaymentConfirmed: true,
		AutoSendReceipt:          false,
	}
}

// AdminSettingsFromValues builds AdminSettings from stored key/value pairs,
// falling back to defaults for missing or unparsable values.
func AdminSettingsFromValues(values map[string]string) AdminSettings {
	s := DefaultAdminSettings()
	readBool := func(key string, dst *bool) {
		if v, ok := values[key]; ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	readBool(SettingNotifyEmailOnBooking, &s.NotifyEmailOnBooking)
	readBool(SettingNotifyWhatsAppOnBooking, &s.NotifyWhatsAppOnBooking)
	readBool(SettingNotifyOnBankTransfer, &s.NotifyOnBankTransfer)
	readBool(SettingNotifyOnPaymentConfirmed, &s.NotifyOnPaymentConfirmed)
	readBool(SettingAutoSendReceipt, &s.AutoSendReceipt)
	if v, ok := values[SettingWhatsAppSenderNumber]; ok {
		s.WhatsAppSenderNumber = v
	}
	return s
}

// AdminSettingsPatch is a partial update. Nil fields are left untouched and
// unknown JSON fields are dropped by the decoder.
type AdminSettingsPatch struct {
	NotifyEmailOnBooking     *bool   `json:"notify_email_on_booking"`
	NotifyWhatsAppOnBooking  *bool   `json:"notify_whatsapp_on_booking"`
	NotifyOnBankTransfer     *bool   `json:"notify_on_bank_transfer"`
	NotifyOnPaymentConfirmed *bool   `json:"notify_on_payment_confirmed"`
	AutoSendReceipt          *bool   `json:"auto_send_receipt"`
	WhatsAppSenderNumber     *string `json:"whatsapp_sender_number"`
}

// IsEmpty reports whether the patch touches no field
func (p AdminSettingsPatch) IsEmpty() bool {
	return p.NotifyEmailOnBooking == nil && p.NotifyWhatsAppOnBooking == nil &&
		p.NotifyOnBankTransfer == nil && p.NotifyOnPaymentConfirmed == nil &&
		p.AutoSendReceipt == nil && p.WhatsAppSenderNumber == nil
}
