package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSettings struct {
	current models.AdminSettings
	patches []models.AdminSettingsPatch
	err     error
}

func (s *stubSettings) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	cp := s.current
	return &cp, nil
}

func (s *stubSettings) UpdateSettings(ctx context.Context, patch models.AdminSettingsPatch) (*models.AdminSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.patches = append(s.patches, patch)
	if patch.AutoSendReceipt != nil {
		s.current.AutoSendReceipt = *patch.AutoSendReceipt
	}
	cp := s.current
	return &cp, nil
}

type stubSweeper struct {
	runs int
}

func (s *stubSweeper) RunOnce(ctx context.Context) (int, error) {
	s.runs++
	return 2, nil
}

func (s *stubSweeper) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{"running": true, "job_count": 2}
}

type stubAudit struct {
	events []services.AuditEvent
	limit  int
}

func (a *stubAudit) LogAdminAction(ctx context.Context, event services.AuditEvent) error {
	a.events = append(a.events, event)
	return nil
}

func (a *stubAudit) GetRecentEvents(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	a.limit = limit
	return []models.AuditEntry{{ID: 1, Actor: "admin-1", Action: models.AuditSettingsUpdated, EntityType: "settings"}}, nil
}

func (a *stubAudit) actions() []string {
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type adminFixture struct {
	router   *gin.Engine
	handler  *AdminHandler
	settings *stubSettings
	stub     *stubReservations
	presence *services.PresenceStore
	sweeper  *stubSweeper
	audit    *stubAudit
}

func setupAdminRouter() *adminFixture {
	f := &adminFixture{
		settings: &stubSettings{current: models.DefaultAdminSettings()},
		stub:     &stubReservations{},
		presence: services.NewPresenceStore(services.DefaultPresenceStoreConfig(), quietLogger()),
		sweeper:  &stubSweeper{},
		audit:    &stubAudit{},
	}
	f.handler = NewAdminHandler(f.settings, f.stub, f.presence, f.sweeper, f.audit, quietLogger())

	router := newTestRouter()
	router.GET("/admin/settings", f.handler.GetSettings)
	router.PUT("/admin/settings", f.handler.UpdateSettings)
	router.GET("/admin/bookings/:id", f.handler.GetBooking)
	router.POST("/admin/bookings/:id/confirm", f.handler.ConfirmBooking)
	router.POST("/admin/bookings/:id/documents/:kind", f.handler.MarkDocumentSent)
	router.GET("/admin/activity", f.handler.GetActivity)
	router.GET("/admin/activity/stream", f.handler.StreamActivity)
	router.GET("/admin/cron/status", f.handler.GetCronStatus)
	router.POST("/admin/cron/sweep", f.handler.RunExpirationSweep)
	router.GET("/admin/audit", f.handler.GetAuditLog)
	f.router = router
	return f
}

func TestUpdateSettings_PartialPatch(t *testing.T) {
	f := setupAdminRouter()

	w := performJSON(f.router, "PUT", "/admin/settings", gin.H{"auto_send_receipt": true, "unknown_field": "x"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["auto_send_receipt"])
	require.Len(t, f.settings.patches, 1)
	assert.NotNil(t, f.settings.patches[0].AutoSendReceipt)
	assert.Nil(t, f.settings.patches[0].NotifyEmailOnBooking)
}

func TestUpdateSettings_InvalidPhone(t *testing.T) {
	f := setupAdminRouter()
	f.settings.err = models.ErrInvalidPhone

	w := performJSON(f.router, "PUT", "/admin/settings", gin.H{"whatsapp_sender_number": "12ab"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_phone", decodeBody(t, w)["error"])
}

func TestAdminConfirmBooking(t *testing.T) {
	f := setupAdminRouter()
	f.stub.confirm = func(id string) (*models.Booking, error) { return sampleBooking(id), nil }

	w := performJSON(f.router, "POST", "/admin/bookings/b-9/confirm", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	booking := decodeBody(t, w)["booking"].(map[string]interface{})
	assert.Equal(t, "b-9", booking["id"])
}

func TestMarkDocumentSent(t *testing.T) {
	f := setupAdminRouter()
	f.stub.markDocumentSent = func(id string, kind models.DocumentKind) (bool, error) {
		if kind != models.DocumentReceipt && kind != models.DocumentContract {
			return false, models.ErrInvalidDocumentKind
		}
		return true, nil
	}

	w := performJSON(f.router, "POST", "/admin/bookings/b-1/documents/contract", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["updated"])

	w = performJSON(f.router, "POST", "/admin/bookings/b-1/documents/invoice", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetActivity(t *testing.T) {
	f := setupAdminRouter()
	f.presence.Join("loft-centro", "Loft Centro", "", false)
	f.presence.Emit(models.BookingCreatedPayload{BookingID: "b-1", GuestName: "Ana", RoomName: "Loft Centro", Amount: 14250})

	w := performJSON(f.router, "GET", "/admin/activity", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	events := body["events"].([]interface{})
	require.Len(t, events, 2)
	assert.Equal(t, "visitor_joined", events[0].(map[string]interface{})["type"])
	assert.Equal(t, "booking_created", events[1].(map[string]interface{})["type"])
}

func TestCronEndpoints(t *testing.T) {
	f := setupAdminRouter()

	w := performJSON(f.router, "GET", "/admin/cron/status", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["running"])

	w = performJSON(f.router, "POST", "/admin/cron/sweep", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["cancelled"])
	assert.Equal(t, 1, f.sweeper.runs)
}

func TestStreamActivity_DeliversLiveEvents(t *testing.T) {
	f := setupAdminRouter()
	f.handler.KeepAlive = time.Hour

	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", server.URL+"/admin/activity/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}

	assert.Equal(t, "presence", readEvent())

	require.Eventually(t, func() bool { return f.presence.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	f.presence.Emit(models.PaymentConfirmedPayload{BookingID: "b-1", GuestName: "Ana", RoomName: "Loft", Amount: 100})

	assert.Equal(t, "payment_confirmed", readEvent())

	cancel()
	require.Eventually(t, func() bool { return f.presence.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAdminActions_AreAudited(t *testing.T) {
	f := setupAdminRouter()
	f.stub.confirm = func(id string) (*models.Booking, error) { return sampleBooking(id), nil }
	f.stub.markDocumentSent = func(string, models.DocumentKind) (bool, error) { return false, nil }

	performJSON(f.router, "PUT", "/admin/settings", gin.H{"auto_send_receipt": true}, nil)
	performJSON(f.router, "POST", "/admin/bookings/b-9/confirm", nil, nil)
	performJSON(f.router, "POST", "/admin/bookings/b-9/documents/receipt", nil, nil) // already sent, not audited
	performJSON(f.router, "POST", "/admin/cron/sweep", nil, nil)

	assert.Equal(t, []string{
		models.AuditSettingsUpdated,
		models.AuditBookingConfirmed,
		models.AuditSweepTriggered,
	}, f.audit.actions())
	assert.Equal(t, "b-9", f.audit.events[1].EntityID)
}

func TestGetAuditLog(t *testing.T) {
	f := setupAdminRouter()

	w := performJSON(f.router, "GET", "/admin/audit?limit=20", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, f.audit.limit)
	entries := decodeBody(t, w)["entries"].([]interface{})
	require.Len(t, entries, 1)

	w = performJSON(f.router, "GET", "/admin/audit?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
