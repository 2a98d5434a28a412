package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/internal/services"
	"github.com/staylong/rental-backend/internal/utils"
	"github.com/staylong/rental-backend/pkg/jwt"
	"github.com/staylong/rental-backend/pkg/payment"
)

// ReservationAPI is the reservation flow used by the HTTP layer
type ReservationAPI interface {
	Reserve(ctx context.Context, req *models.ReserveRequest) (*services.ReservationResult, error)
	CancelPending(ctx context.Context, bookingID string) error
	Confirm(ctx context.Context, bookingID string) (*models.Booking, error)
	ConfirmFromPayment(ctx context.Context, paymentID string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	Quote(ctx context.Context, roomID string, durationDays int, cleaning bool) (*services.PriceQuote, error)
	CreateCheckout(ctx context.Context, bookingID string) (*payment.CheckoutSession, error)
	MarkDocumentSent(ctx context.Context, bookingID string, kind models.DocumentKind) (bool, error)
}

// ReservationLimiter throttles reservation attempts
type ReservationLimiter interface {
	CheckReservationRateLimit(ctx context.Context, email, ip string) error
	RecordReservationAttempt(ctx context.Context, email, ip string) error
}

// ReservationHandler handles the public booking endpoints
type ReservationHandler struct {
	reservations ReservationAPI
	limiter      ReservationLimiter // nil disables throttling
	jwtService   *jwt.Service
	logger       *logrus.Logger
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservations ReservationAPI, limiter ReservationLimiter, jwtService *jwt.Service, logger *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		limiter:      limiter,
		jwtService:   jwtService,
		logger:       logger,
	}
}

// Reserve handles POST /api/v1/reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if !h.allowAttempt(c, req.Guest.Email) {
		return
	}

	result, err := h.reservations.Reserve(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// allowAttempt enforces the attempt budget and records the attempt.
// Limiter storage failures let the request through.
func (h *ReservationHandler) allowAttempt(c *gin.Context, email string) bool {
	if h.limiter == nil {
		return true
	}

	ctx := c.Request.Context()
	ip := utils.GetRealIP(c)

	if err := h.limiter.CheckReservationRateLimit(ctx, email, ip); err != nil {
		var limitErr *services.RateLimitError
		if errors.As(err, &limitErr) {
			h.logger.WithFields(logrus.Fields{
				"ip":   ip,
				"type": limitErr.Type,
			}).Warn("Reservation attempt rate limited")

			retry := int(time.Until(limitErr.RetryAfter).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate_limited", Message: limitErr.Message})
			return false
		}
		h.logger.WithError(err).Warn("Rate limit check failed")
	}

	if err := h.limiter.RecordReservationAttempt(ctx, email, ip); err != nil {
		h.logger.WithError(err).Warn("Failed to record reservation attempt")
	}
	return true
}

// CancelPending handles POST /api/v1/reservations/cancel.
// The guest is leaving checkout, so the response is always success.
func (h *ReservationHandler) CancelPending(c *gin.Context) {
	var req models.CancelPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.reservations.CancelPending(c.Request.Context(), req.BookingID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"booking_id": req.BookingID,
			"error":      err.Error(),
		}).Info("Cancel of pending booking failed, hold will lapse")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Confirm handles POST /api/v1/reservations/confirm
func (h *ReservationHandler) Confirm(c *gin.Context) {
	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.jwtService.ValidatePaymentToken(req.PaymentToken, req.BookingID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"booking_id": req.BookingID,
			"ip":         c.ClientIP(),
			"error":      err.Error(),
		}).Warn("Rejected confirmation with invalid payment token")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid_payment_token", Message: "Payment token is invalid or expired"})
		return
	}

	booking, err := h.reservations.Confirm(c.Request.Context(), req.BookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking.Summary()})
}

// GetBooking handles GET /api/v1/reservations/:id
func (h *ReservationHandler) GetBooking(c *gin.Context) {
	booking, err := h.reservations.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking.Summary()})
}

// CreateCheckout handles POST /api/v1/reservations/:id/checkout
func (h *ReservationHandler) CreateCheckout(c *gin.Context) {
	session, err := h.reservations.CreateCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Quote handles GET /api/v1/rooms/:id/quote?days=90&cleaning=true
func (h *ReservationHandler) Quote(c *gin.Context) {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "days must be an integer"})
		return
	}
	cleaning, _ := strconv.ParseBool(c.DefaultQuery("cleaning", "false"))

	quote, err := h.reservations.Quote(c.Request.Context(), c.Param("id"), days, cleaning)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// paymentNotification is the provider webhook body
type paymentNotification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PaymentWebhook handles POST /api/v1/payments/webhook.
// The notification only names a payment; its status is fetched from the
// provider before anything is confirmed.
func (h *ReservationHandler) PaymentWebhook(c *gin.Context) {
	var note paymentNotification
	_ = c.ShouldBindJSON(&note)
	if note.Type == "" {
		note.Type = c.Query("type")
	}
	if note.Data.ID == "" {
		note.Data.ID = c.Query("data.id")
	}

	if note.Type != "payment" || note.Data.ID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	booking, err := h.reservations.ConfirmFromPayment(c.Request.Context(), note.Data.ID)
	switch {
	case errors.Is(err, models.ErrPaymentNotApproved):
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
	case err != nil:
		respondError(c, h.logger, err)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "confirmed", "booking_id": booking.ID})
	}
}
