package models

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the wire format for booking dates
const DateLayout = "2006-01-02"

// BookingStatus represents the lifecycle state of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment" // Hold created, waiting for payment
	BookingStatusConfirmed      BookingStatus = "confirmed"       // Payment verified
	BookingStatusCancelled      BookingStatus = "cancelled"       // Abandoned or expired hold
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethod represents how the guest pays
type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe" // hosted card checkout
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// DocumentKind names the documents whose delivery is tracked on a booking
type DocumentKind string

const (
	DocumentReceipt  DocumentKind = "receipt"
	DocumentContract DocumentKind = "contract"
)

// CancellationReasonHoldExpired is written by the expired-hold sweeper
const CancellationReasonHoldExpired = "hold_expired"

// Booking represents an apartment reservation
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	RoomID             string        `json:"room_id" db:"room_id"`
	GuestID            string        `json:"guest_id" db:"guest_id"`
	StartDate          time.Time     `json:"start_date" db:"start_date"`
	EndDate            time.Time     `json:"end_date" db:"end_date"`
	DurationDays       int           `json:"duration_days" db:"duration_days"`
	Status             BookingStatus `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod      PaymentMethod `json:"payment_method" db:"payment_method"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	RateAtBooking      float64       `json:"rate_at_booking" db:"rate_at_booking"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ReceiptSent        bool          `json:"receipt_sent" db:"receipt_sent"`
	ReceiptSentAt      *time.Time    `json:"receipt_sent_at,omitempty" db:"receipt_sent_at"`
	ContractSent       bool          `json:"contract_sent" db:"contract_sent"`
	ContractSentAt     *time.Time    `json:"contract_sent_at,omitempty" db:"contract_sent_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// IsHoldExpired reports whether a pending booking's hold window has elapsed
func (b *Booking) IsHoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPendingPayment && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// BlocksAvailability reports whether the booking still occupies its dates.
// Cancelled bookings and pending bookings past expires_at do not.
func (b *Booking) BlocksAvailability(now time.Time) bool {
	switch b.Status {
	case BookingStatusConfirmed:
		return true
	case BookingStatusPendingPayment:
		return !b.IsHoldExpired(now)
	default:
		return false
	}
}

// ============================================================================
// REQUEST/RESPONSE STRUCTS
// ============================================================================

// StayDays returns the number of nights between two calendar dates
func StayDays(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Hours() / 24))
}

// ReserveRequest is the checkout payload submitted by the booking page
type ReserveRequest struct {
	RoomID            string        `json:"room_id"`
	Guest             GuestInfo     `json:"guest"`
	StartDate         string        `json:"start_date"` // "2025-01-10"
	EndDate           string        `json:"end_date"`
	DurationDays      int           `json:"duration_days"`
	ClientTotalAmount float64       `json:"client_total_amount"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	CleaningService   bool          `json:"cleaning_service"`
	Locale            string        `json:"locale"`
}

// Validate validates the reserve request and returns the parsed date range
func (r *ReserveRequest) Validate() (start, end time.Time, err error) {
	if strings.TrimSpace(r.RoomID) == "" || r.StartDate == "" || r.EndDate == "" || r.DurationDays == 0 {
		return start, end, ErrMissingFields
	}
	if err := r.Guest.Validate(); err != nil {
		return start, end, err
	}

	switch r.PaymentMethod {
	case "":
		r.PaymentMethod = PaymentMethodStripe
	case PaymentMethodStripe, PaymentMethodBankTransfer:
	default:
		return start, end, ErrInvalidPaymentMethod
	}

	start, err = time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return start, end, ErrInvalidDateRange
	}
	end, err = time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return start, end, ErrInvalidDateRange
	}
	if !end.After(start) {
		return start, end, ErrInvalidDateRange
	}

	if r.DurationDays < MinimumStayDays {
		return start, end, ErrInvalidDuration
	}
	// DurationDays prices the stay and must equal the booked nights.
	if StayDays(start, end) != r.DurationDays {
		return start, end, ErrDurationMismatch
	}

	return start, end, nil
}

// CancelPendingRequest is sent when the guest navigates away from checkout
type CancelPendingRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// ConfirmBookingRequest carries the payment verification token
type ConfirmBookingRequest struct {
	BookingID    string `json:"booking_id" binding:"required"`
	PaymentToken string `json:"payment_token" binding:"required"`
}

// BookingSummary is the public view of a booking returned by the API
type BookingSummary struct {
	BookingID     string        `json:"booking_id"`
	RoomID        string        `json:"room_id"`
	StartDate     string        `json:"start_date"`
	EndDate       string        `json:"end_date"`
	DurationDays  int           `json:"duration_days"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalAmount   float64       `json:"total_amount"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
}

// Summary builds the public view of the booking
func (b *Booking) Summary() BookingSummary {
	return BookingSummary{
		BookingID:     b.ID,
		RoomID:        b.RoomID,
		StartDate:     b.StartDate.Format(DateLayout),
		EndDate:       b.EndDate.Format(DateLayout),
		DurationDays:  b.DurationDays,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		TotalAmount:   b.TotalAmount,
		ExpiresAt:     b.ExpiresAt,
		ConfirmedAt:   b.ConfirmedAt,
	}
}
