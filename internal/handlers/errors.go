package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/pkg/payment"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{models.ErrInvalidDuration, http.StatusBadRequest, "invalid_duration"},
	{models.ErrDurationMismatch, http.StatusBadRequest, "duration_mismatch"},
	{models.ErrInvalidRate, http.StatusBadRequest, "invalid_rate"},
	{models.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{models.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{models.ErrInvalidPhone, http.StatusBadRequest, "invalid_phone"},
	{models.ErrInvalidDocumentKind, http.StatusBadRequest, "invalid_document_kind"},
	{payment.ErrInvalidPaymentID, http.StatusBadRequest, "invalid_payment_id"},
	{models.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{models.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{models.ErrPriceMismatch, http.StatusConflict, "price_mismatch"},
	{models.ErrDatesUnavailable, http.StatusConflict, "dates_unavailable"},
	{models.ErrBookingNotPending, http.StatusConflict, "booking_not_pending"},
	{models.ErrBookingExpired, http.StatusConflict, "booking_expired"},
	{models.ErrPaymentNotApproved, http.StatusConflict, "payment_not_approved"},
	{models.ErrBusy, http.StatusServiceUnavailable, "busy"},
	{payment.ErrGatewayNotConfigured, http.StatusServiceUnavailable, "payment_unavailable"},
}

// classifyError maps a service error to its HTTP status and code.
// Unknown errors are internal.
func classifyError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes the error body. Internal errors are logged and their
// details withheld from the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := classifyError(err)

	message := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logger.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"error":  err.Error(),
		}).Error("Request failed")
		message = "An unexpected error occurred"
	case status == http.StatusServiceUnavailable:
		c.Header("Retry-After", "1")
		message = "Service temporarily unavailable, please retry"
	}

	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
}
