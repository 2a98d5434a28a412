package payment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/sirupsen/logrus"
)

const mockPaymentPrefix = "mock-"

// MercadoPagoConfig holds configuration for the Mercado Pago gateway
type MercadoPagoConfig struct {
	Mode        string // "mock" or "production"
	AccessToken string
	SuccessURL  string
	FailureURL  string
	PendingURL  string
	WebhookURL  string
}

// MercadoPagoGateway creates checkout preferences and reads payments
type MercadoPagoGateway struct {
	preferences preference.Client
	payments    mppayment.Client
	config      MercadoPagoConfig
	mockMode    bool
	logger      *logrus.Logger
}

// NewMercadoPagoGateway creates the gateway. Mock mode never calls the provider.
func NewMercadoPagoGateway(cfg MercadoPagoConfig, logger *logrus.Logger) (*MercadoPagoGateway, error) {
	if strings.EqualFold(cfg.Mode, "mock") {
		logger.Info("[payment][gateway] mock mode enabled")
		return &MercadoPagoGateway{config: cfg, mockMode: true, logger: logger}, nil
	}

	if cfg.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	sdkCfg, err := config.New(cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mercado Pago config: %w", err)
	}
	logger.Info("[payment][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{
		preferences: preference.NewClient(sdkCfg),
		payments:    mppayment.NewClient(sdkCfg),
		config:      cfg,
		logger:      logger,
	}, nil
}

// CreateCheckout creates a checkout preference referencing the booking
func (g *MercadoPagoGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if g.mockMode {
		sessionID := mockPaymentPrefix + uuid.NewString()
		redirect := g.config.SuccessURL
		if redirect == "" {
			redirect = "/checkout/success"
		}
		redirect = fmt.Sprintf("%s?booking_id=%s&payment_id=%s",
			redirect, url.QueryEscape(req.BookingID), url.QueryEscape(mockPaymentPrefix+req.BookingID))

		g.logger.WithFields(logrus.Fields{
			"booking_id": req.BookingID,
			"amount":     req.Amount,
		}).Info("[payment][gateway] mock checkout created")
		return &CheckoutSession{SessionID: sessionID, RedirectURL: redirect}, nil
	}

	if g.preferences == nil {
		return nil, ErrGatewayNotConfigured
	}

	request := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:         req.BookingID,
				Title:      req.Title,
				Quantity:   1,
				UnitPrice:  req.Amount,
				CurrencyID: req.Currency,
			},
		},
		Payer: &preference.PayerRequest{
			Name:  req.PayerName,
			Email: req.PayerEmail,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: g.config.SuccessURL,
			Failure: g.config.FailureURL,
			Pending: g.config.PendingURL,
		},
		ExternalReference: req.BookingID,
		NotificationURL:   g.config.WebhookURL,
	}
	if !req.ExpiresAt.IsZero() {
		expiresAt := req.ExpiresAt
		request.Expires = true
		request.ExpirationDateTo = &expiresAt
	}

	resp, err := g.preferences.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout preference: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"booking_id":    req.BookingID,
		"preference_id": resp.ID,
	}).Info("[payment][gateway] checkout preference created")

	return &CheckoutSession{SessionID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

// VerifyPayment fetches a payment and reports whether it was approved
func (g *MercadoPagoGateway) VerifyPayment(ctx context.Context, paymentID string) (*PaymentResult, error) {
	if g.mockMode {
		bookingID := strings.TrimPrefix(paymentID, mockPaymentPrefix)
		if bookingID == paymentID || bookingID == "" {
			return nil, ErrInvalidPaymentID
		}
		return &PaymentResult{PaymentID: paymentID, BookingID: bookingID, Status: "approved", Approved: true}, nil
	}

	if g.payments == nil {
		return nil, ErrGatewayNotConfigured
	}

	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, ErrInvalidPaymentID
	}

	resp, err := g.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	return &PaymentResult{
		PaymentID: paymentID,
		BookingID: resp.ExternalReference,
		Status:    resp.Status,
		Approved:  resp.Status == "approved",
	}, nil
}

// GetName returns the name of this gateway
func (g *MercadoPagoGateway) GetName() string {
	if g.mockMode {
		return "Mercado Pago (mock)"
	}
	return "Mercado Pago"
}
