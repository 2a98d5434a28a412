package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingAccessToken   = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
	ErrInvalidPaymentID     = errors.New("invalid payment id")
)

// CheckoutRequest describes the hosted checkout for one booking
type CheckoutRequest struct {
	BookingID  string
	Title      string // shown on the checkout page, e.g. room name and dates
	Amount     float64
	Currency   string
	PayerName  string
	PayerEmail string
	ExpiresAt  time.Time // checkout closes with the booking hold
}

// CheckoutSession is the redirect target returned to the guest
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentResult is the provider's view of a payment
type PaymentResult struct {
	PaymentID string
	BookingID string // external reference set at checkout creation
	Status    string
	Approved  bool
}

// CheckoutGateway creates hosted payment sessions and verifies payments
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifyPayment(ctx context.Context, paymentID string) (*PaymentResult, error)
	GetName() string
}
