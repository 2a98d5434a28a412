package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/staylong/rental-backend/internal/database"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/utils"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditService records back-office changes in audit_logs
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents an admin action to be logged
type AuditEvent struct {
	Actor      string                 // Admin subject from the access token
	Action     string                 // One of the models.Audit* actions
	EntityType string                 // "booking", "settings", "job"
	EntityID   string                 // Empty when the action is not tied to one row
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Stored as JSONB
}

// LogAdminAction writes one audit row. The parsed client is added to the details.
func (s *AuditService) LogAdminAction(ctx context.Context, event AuditEvent) error {
	details := make(map[string]interface{}, len(event.Details)+1)
	for k, v := range event.Details {
		details[k] = v
	}
	if event.UserAgent != "" {
		details["device_info"] = utils.ParseClient(event.UserAgent)
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var entityID *string
	if event.EntityID != "" {
		entityID = &event.EntityID
	}

	query := `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		event.Actor,
		event.Action,
		event.EntityType,
		entityID,
		event.IPAddress,
		event.UserAgent,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents returns the newest audit rows first
func (s *AuditService) GetRecentEvents(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	query := `
		SELECT id, actor, action, entity_type, entity_id, ip_address, user_agent, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	entries := []models.AuditEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	return entries, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
