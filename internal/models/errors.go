package models

import "errors"

// MinimumStayDays is the shortest stay the storefront accepts
const MinimumStayDays = 30

// Validation errors
var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrInvalidDuration      = errors.New("duration must be at least 30 days")
	ErrDurationMismatch     = errors.New("duration does not match the requested dates")
	ErrInvalidRate          = errors.New("monthly rate must be positive")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrInvalidDocumentKind  = errors.New("invalid document kind")
)

// Not-found errors
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
)

// Conflict errors
var (
	ErrPriceMismatch      = errors.New("price mismatch")
	ErrDatesUnavailable   = errors.New("dates unavailable")
	ErrBookingNotPending  = errors.New("booking is no longer pending payment")
	ErrBookingExpired     = errors.New("booking hold expired and dates were taken")
	ErrPaymentNotApproved = errors.New("payment not approved")
)

// ErrBusy is returned when a resource lock could not be acquired in time.
// Callers may retry.
var ErrBusy = errors.New("resource busy, retry later")
