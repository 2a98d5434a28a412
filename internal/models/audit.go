package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded for back-office changes
const (
	AuditSettingsUpdated  = "settings_updated"
	AuditBookingConfirmed = "booking_confirmed"
	AuditDocumentSent     = "document_marked_sent"
	AuditSweepTriggered   = "expiration_sweep_triggered"
)

// AuditEntry is one row of the admin audit trail
type AuditEntry struct {
	ID         int64          `json:"id" db:"id"`
	Actor      string         `json:"actor" db:"actor"`
	Action     string         `json:"action" db:"action"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   *string        `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  string         `json:"ip_address" db:"ip_address"`
	UserAgent  string         `json:"user_agent" db:"user_agent"`
	Details    types.JSONText `json:"details" db:"details"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
