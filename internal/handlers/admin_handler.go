package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/middleware"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/staylong/rental-backend/internal/utils"
)

// SettingsAPI reads and patches the admin settings
type SettingsAPI interface {
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
	UpdateSettings(ctx context.Context, patch models.AdminSettingsPatch) (*models.AdminSettings, error)
}

// SweeperAPI exposes the scheduled expiration jobs
type SweeperAPI interface {
	RunOnce(ctx context.Context) (int, error)
	GetJobStatus() map[string]interface{}
}

// AuditAPI records and lists back-office changes
type AuditAPI interface {
	LogAdminAction(ctx context.Context, event services.AuditEvent) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

var errSlowConsumer = errors.New("stream consumer is not keeping up")

// AdminHandler handles back-office endpoints
type AdminHandler struct {
	settings     SettingsAPI
	reservations ReservationAPI
	presence     *services.PresenceStore
	sweeper      SweeperAPI
	audit        AuditAPI // nil disables the audit trail
	logger       *logrus.Logger

	// StreamBuffer is how many events a slow SSE client may lag behind
	StreamBuffer int
	// KeepAlive is the interval between SSE comments on an idle stream
	KeepAlive time.Duration
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	settings SettingsAPI,
	reservations ReservationAPI,
	presence *services.PresenceStore,
	sweeper SweeperAPI,
	audit AuditAPI,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		settings:     settings,
		reservations: reservations,
		presence:     presence,
		sweeper:      sweeper,
		audit:        audit,
		logger:       logger,
		StreamBuffer: 32,
		KeepAlive:    25 * time.Second,
	}
}

func (h *AdminHandler) adminFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{"ip": c.ClientIP()}
	if admin, ok := middleware.GetAdminContext(c); ok {
		fields["admin"] = admin.Subject
	}
	return fields
}

// record writes an audit row for the calling admin. Failures are logged only.
func (h *AdminHandler) record(c *gin.Context, action, entityType, entityID string, details map[string]interface{}) {
	if h.audit == nil {
		return
	}

	event := services.AuditEvent{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  utils.GetRealIP(c),
		UserAgent:  utils.GetUserAgent(c),
		Details:    details,
	}
	if admin, ok := middleware.GetAdminContext(c); ok {
		event.Actor = admin.Subject
	}

	if err := h.audit.LogAdminAction(c.Request.Context(), event); err != nil {
		h.logger.WithFields(h.adminFields(c)).WithError(err).Warn("Failed to write audit entry")
	}
}

// ============================================================================
// SETTINGS
// ============================================================================

// GetSettings handles GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/v1/admin/settings.
// Only fields present in the body are written; unknown fields are ignored.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var patch models.AdminSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	settings, err := h.settings.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(h.adminFields(c)).Info("Admin settings changed")
	h.record(c, models.AuditSettingsUpdated, "settings", "", map[string]interface{}{"patch": patch})
	c.JSON(http.StatusOK, settings)
}

// ============================================================================
// BOOKINGS
// ============================================================================

// ConfirmBooking handles POST /api/v1/admin/bookings/:id/confirm
// (manual confirmation after a bank transfer is reconciled)
func (h *AdminHandler) ConfirmBooking(c *gin.Context) {
	bookingID := c.Param("id")

	booking, err := h.reservations.Confirm(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(h.adminFields(c)).WithField("booking_id", bookingID).Info("Booking confirmed manually")
	h.record(c, models.AuditBookingConfirmed, "booking", bookingID, map[string]interface{}{"status": booking.Status})
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GetBooking handles GET /api/v1/admin/bookings/:id (full record)
func (h *AdminHandler) GetBooking(c *gin.Context) {
	booking, err := h.reservations.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// MarkDocumentSent handles POST /api/v1/admin/bookings/:id/documents/:kind
func (h *AdminHandler) MarkDocumentSent(c *gin.Context) {
	kind := models.DocumentKind(c.Param("kind"))
	bookingID := c.Param("id")

	updated, err := h.reservations.MarkDocumentSent(c.Request.Context(), bookingID, kind)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if updated {
		h.record(c, models.AuditDocumentSent, "booking", bookingID, map[string]interface{}{"kind": kind})
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated, "kind": kind})
}

// ============================================================================
// ACTIVITY
// ============================================================================

// GetActivity handles GET /api/v1/admin/activity
func (h *AdminHandler) GetActivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"events":   h.presence.RecentEvents(),
		"presence": h.presence.Snapshot(),
	})
}

// StreamActivity handles GET /api/v1/admin/activity/stream as server-sent events.
// A client that falls StreamBuffer events behind is disconnected.
func (h *AdminHandler) StreamActivity(c *gin.Context) {
	events := make(chan models.ActivityEvent, h.StreamBuffer)
	lagging := make(chan struct{})
	var lagOnce sync.Once

	unsubscribe := h.presence.Subscribe(func(event models.ActivityEvent) error {
		select {
		case events <- event:
			return nil
		default:
			lagOnce.Do(func() { close(lagging) })
			return errSlowConsumer
		}
	})
	defer unsubscribe()

	fields := h.adminFields(c)
	h.logger.WithFields(fields).Info("Activity stream opened")
	defer h.logger.WithFields(fields).Info("Activity stream closed")

	keepAlive := time.NewTicker(h.KeepAlive)
	defer keepAlive.Stop()

	c.SSEvent("presence", h.presence.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-events:
			c.SSEvent(string(event.Type), event)
			return true
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		case <-lagging:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ============================================================================
// JOBS
// ============================================================================

// GetCronStatus handles GET /api/v1/admin/cron/status
func (h *AdminHandler) GetCronStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sweeper.GetJobStatus())
}

// RunExpirationSweep handles POST /api/v1/admin/cron/sweep
func (h *AdminHandler) RunExpirationSweep(c *gin.Context) {
	cancelled, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.record(c, models.AuditSweepTriggered, "job", "", map[string]interface{}{"cancelled": cancelled})
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// ============================================================================
// AUDIT
// ============================================================================

// GetAuditLog handles GET /api/v1/admin/audit?limit=50
func (h *AdminHandler) GetAuditLog(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []models.AuditEntry{}})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.audit.GetRecentEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
