package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/staylong/rental-backend/pkg/payment"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubReservations implements ReservationAPI with overridable funcs
type stubReservations struct {
	reserve            func(req *models.ReserveRequest) (*services.ReservationResult, error)
	cancelPending      func(id string) error
	confirm            func(id string) (*models.Booking, error)
	confirmFromPayment func(paymentID string) (*models.Booking, error)
	getBooking         func(id string) (*models.Booking, error)
	quote              func(roomID string, days int, cleaning bool) (*services.PriceQuote, error)
	createCheckout     func(id string) (*payment.CheckoutSession, error)
	markDocumentSent   func(id string, kind models.DocumentKind) (bool, error)
}

func (s *stubReservations) Reserve(ctx context.Context, req *models.ReserveRequest) (*services.ReservationResult, error) {
	return s.reserve(req)
}

func (s *stubReservations) CancelPending(ctx context.Context, id string) error {
	return s.cancelPending(id)
}

func (s *stubReservations) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	return s.confirm(id)
}

func (s *stubReservations) ConfirmFromPayment(ctx context.Context, paymentID string) (*models.Booking, error) {
	return s.confirmFromPayment(paymentID)
}

func (s *stubReservations) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.getBooking(id)
}

func (s *stubReservations) Quote(ctx context.Context, roomID string, days int, cleaning bool) (*services.PriceQuote, error) {
	return s.quote(roomID, days, cleaning)
}

func (s *stubReservations) CreateCheckout(ctx context.Context, id string) (*payment.CheckoutSession, error) {
	return s.createCheckout(id)
}

func (s *stubReservations) MarkDocumentSent(ctx context.Context, id string, kind models.DocumentKind) (bool, error) {
	return s.markDocumentSent(id, kind)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
