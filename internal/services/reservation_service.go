package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/pkg/lease"
	"github.com/staylong/rental-backend/pkg/payment"
	"github.com/staylong/rental-backend/pkg/validator"
)

// RoomReader looks up rooms
type RoomReader interface {
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
}

// GuestReader looks up guests
type GuestReader interface {
	GetGuestByID(ctx context.Context, id string) (*models.Guest, error)
}

// ReservationStore is the persistence used by the reservation flow
type ReservationStore interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	ListActiveBookings(ctx context.Context, roomID string, now time.Time) ([]models.Booking, error)
	CreateBookingWithGuest(ctx context.Context, info models.GuestInfo, booking *models.Booking, bufferDays int) (*models.Guest, error)
	DeletePendingBooking(ctx context.Context, id string) (bool, error)
	ConfirmPendingBooking(ctx context.Context, id string, now time.Time) (*models.Booking, error)
	MarkDocumentSent(ctx context.Context, id string, kind models.DocumentKind, now time.Time) (bool, error)
}

// EventEmitter receives booking lifecycle events
type EventEmitter interface {
	Emit(payload models.EventPayload) models.ActivityEvent
}

// BookingNotifier delivers guest notifications without blocking the caller
type BookingNotifier interface {
	BookingCreated(booking models.Booking, guest models.Guest, room models.Room)
	PaymentConfirmed(booking models.Booking, guest models.Guest, room models.Room)
}

// ReservationConfig holds the reservation policy
type ReservationConfig struct {
	HoldWindow         time.Duration // how long a pending_payment booking blocks the room
	CleaningBufferDays int           // free days required between two stays
	PriceTolerance     float64       // accepted |server - client| price difference
	Cleaning           CleaningSchedule
	Currency           string
}

// DefaultReservationConfig returns default configuration
func DefaultReservationConfig() ReservationConfig {
	return ReservationConfig{
		HoldWindow:         1 * time.Hour,
		CleaningBufferDays: 2,
		PriceTolerance:     50,
		Cleaning:           CleaningSchedule{PeriodLengthDays: 7},
		Currency:           "MXN",
	}
}

// ReservationResult is returned by Reserve
type ReservationResult struct {
	Booking          models.BookingSummary `json:"booking"`
	GuestID          string                `json:"guest_id"`
	Quote            PriceQuote            `json:"quote"`
	PaymentURL       string                `json:"payment_url,omitempty"`
	PaymentSessionID string                `json:"payment_session_id,omitempty"`
}

// ReservationService coordinates pricing, availability and the guarded
// guest+booking write.
type ReservationService struct {
	rooms    RoomReader
	guests   GuestReader
	store    ReservationStore
	locker   lease.Locker
	events   EventEmitter
	notifier BookingNotifier         // optional
	checkout payment.CheckoutGateway // optional
	phone    *validator.PhoneValidator
	config   ReservationConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(
	rooms RoomReader,
	guests GuestReader,
	store ReservationStore,
	locker lease.Locker,
	events EventEmitter,
	notifier BookingNotifier,
	checkout payment.CheckoutGateway,
	config ReservationConfig,
	logger *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		rooms:    rooms,
		guests:   guests,
		store:    store,
		locker:   locker,
		events:   events,
		notifier: notifier,
		checkout: checkout,
		phone:    validator.NewPhoneValidator(),
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// ============================================================================
// RESERVE
// ============================================================================

// Reserve creates a pending_payment booking for the requested stay
func (s *ReservationService) Reserve(ctx context.Context, req *models.ReserveRequest) (*ReservationResult, error) {
	start, end, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if normalized, err := s.phone.Validate(req.Guest.Phone); err == nil {
		req.Guest.Phone = normalized
	}
	candidate := NewDateRange(start, end)

	// 1. Room lookup
	room, err := s.rooms.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, models.ErrRoomNotFound
	}

	// 2. Server-side price; the client amount is only compared, never stored
	quote, err := ComputePrice(room.MonthlyRate, req.DurationDays, s.cleaningFor(req.CleaningService))
	if err != nil {
		return nil, err
	}
	if !WithinTolerance(quote.TotalPrice, req.ClientTotalAmount, s.config.PriceTolerance) {
		s.logger.WithFields(logrus.Fields{
			"room_id":       room.ID,
			"client_amount": req.ClientTotalAmount,
			"server_amount": quote.TotalPrice,
			"duration_days": req.DurationDays,
			"start_date":    req.StartDate,
			"end_date":      req.EndDate,
			"guest_email":   models.NormalizeEmail(req.Guest.Email),
		}).Warn("Price mismatch on reservation")
		return nil, models.ErrPriceMismatch
	}

	// 3. Read-only pre-check, keeps obviously taken dates away from the locks
	if err := s.ensureAvailable(ctx, room.ID, candidate, ""); err != nil {
		return nil, err
	}

	// 4-5. Guarded write
	booking, guest, err := s.createGuarded(ctx, room, req, candidate, quote)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"room_id":        room.ID,
		"guest_id":       guest.ID,
		"total_amount":   booking.TotalAmount,
		"payment_method": booking.PaymentMethod,
		"expires_at":     booking.ExpiresAt,
	}).Info("Reservation created")

	// 6. Side effects, none of which can fail the reservation
	s.emitCreated(*booking, *guest, *room)
	if s.notifier != nil {
		s.notifier.BookingCreated(*booking, *guest, *room)
	}

	result := &ReservationResult{
		Booking: booking.Summary(),
		GuestID: guest.ID,
		Quote:   *quote,
	}

	if booking.PaymentMethod == models.PaymentMethodStripe && s.checkout != nil {
		session, err := s.startCheckout(ctx, booking, guest, room)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to create payment session")
		} else {
			result.PaymentURL = session.RedirectURL
			result.PaymentSessionID = session.SessionID
		}
	}

	return result, nil
}

func (s *ReservationService) createGuarded(
	ctx context.Context,
	room *models.Room,
	req *models.ReserveRequest,
	candidate DateRange,
	quote *PriceQuote,
) (*models.Booking, *models.Guest, error) {
	// Room before guest, always, so two requests can never wait on each other
	releaseRoom, err := acquireLease(ctx, s.locker, lease.RoomKey(room.ID), s.logger)
	if err != nil {
		return nil, nil, err
	}
	defer releaseRoom()

	releaseGuest, err := acquireLease(ctx, s.locker, lease.GuestKey(req.Guest.Email), s.logger)
	if err != nil {
		return nil, nil, err
	}
	defer releaseGuest()

	// Re-check under the lease: the pre-check may be stale
	if err := s.ensureAvailable(ctx, room.ID, candidate, ""); err != nil {
		return nil, nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.config.HoldWindow)
	booking := &models.Booking{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		StartDate:     candidate.Start,
		EndDate:       candidate.End,
		DurationDays:  req.DurationDays,
		Status:        models.BookingStatusPendingPayment,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   quote.TotalPrice,
		RateAtBooking: room.MonthlyRate,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	guest, err := s.store.CreateBookingWithGuest(ctx, req.Guest, booking, s.config.CleaningBufferDays)
	if err != nil {
		if errors.Is(err, models.ErrDatesUnavailable) {
			s.logOverlap(room.ID, candidate, nil)
			return nil, nil, err
		}
		if errors.Is(err, models.ErrBusy) || errors.Is(err, models.ErrRoomNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return booking, guest, nil
}

// ensureAvailable returns ErrDatesUnavailable when candidate collides with an
// active booking of the room other than excludeID
func (s *ReservationService) ensureAvailable(ctx context.Context, roomID string, candidate DateRange, excludeID string) error {
	now := s.now()
	bookings, err := s.store.ListActiveBookings(ctx, roomID, now)
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	active := ActiveBookings(bookings, now)
	if excludeID != "" {
		filtered := active[:0]
		for _, b := range active {
			if b.ID != excludeID {
				filtered = append(filtered, b)
			}
		}
		active = filtered
	}

	if conflict := FirstConflict(candidate, s.config.CleaningBufferDays, active); conflict != nil {
		s.logOverlap(roomID, candidate, conflict)
		return models.ErrDatesUnavailable
	}
	return nil
}

func (s *ReservationService) logOverlap(roomID string, candidate DateRange, conflict *models.Booking) {
	fields := logrus.Fields{
		"room_id":         roomID,
		"requested_start": candidate.Start.Format(models.DateLayout),
		"requested_end":   candidate.End.Format(models.DateLayout),
		"buffer_days":     s.config.CleaningBufferDays,
	}
	if conflict != nil {
		fields["conflicting_booking_id"] = conflict.ID
		fields["conflicting_start"] = conflict.StartDate.Format(models.DateLayout)
		fields["conflicting_end"] = conflict.EndDate.Format(models.DateLayout)
	}
	s.logger.WithFields(fields).Warn("Requested dates overlap an existing booking")
}

func (s *ReservationService) cleaningFor(requested bool) *CleaningSchedule {
	if !requested {
		return nil
	}
	schedule := s.config.Cleaning
	return &schedule
}

func (s *ReservationService) emitCreated(booking models.Booking, guest models.Guest, room models.Room) {
	if s.events == nil {
		return
	}
	if booking.PaymentMethod == models.PaymentMethodBankTransfer {
		s.events.Emit(models.BankTransferPayload{
			BookingID: booking.ID,
			GuestName: guest.FullName,
			RoomName:  room.Name,
			Amount:    booking.TotalAmount,
		})
		return
	}
	s.events.Emit(models.BookingCreatedPayload{
		BookingID: booking.ID,
		GuestName: guest.FullName,
		RoomName:  room.Name,
		Amount:    booking.TotalAmount,
	})
}

// ============================================================================
// CANCEL / CONFIRM
// ============================================================================

// CancelPending deletes a booking that is still pending payment. Missing or
// already confirmed bookings are a no-op; only infrastructure failures error.
func (s *ReservationService) CancelPending(ctx context.Context, bookingID string) error {
	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.Status != models.BookingStatusPendingPayment {
		s.logger.WithField("booking_id", bookingID).Debug("Cancel ignored, booking not pending")
		return nil
	}

	release, err := acquireLease(ctx, s.locker, lease.RoomKey(booking.RoomID), s.logger)
	if err != nil {
		return err
	}
	defer release()

	// The delete itself re-checks the status, so a confirmation that won the
	// race is left untouched
	deleted, err := s.store.DeletePendingBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"deleted":    deleted,
	}).Info("Pending booking cancelled")
	return nil
}

// Confirm marks a booking paid. Confirming an already confirmed booking
// returns it unchanged.
func (s *ReservationService) Confirm(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}

	switch booking.Status {
	case models.BookingStatusConfirmed:
		return booking, nil
	case models.BookingStatusCancelled:
		return nil, models.ErrBookingNotPending
	}

	release, err := acquireLease(ctx, s.locker, lease.RoomKey(booking.RoomID), s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	if booking.IsHoldExpired(now) {
		// Payment arrived after the hold lapsed: honor it only if nobody took the dates
		candidate := NewDateRange(booking.StartDate, booking.EndDate)
		if err := s.ensureAvailable(ctx, booking.RoomID, candidate, booking.ID); err != nil {
			if errors.Is(err, models.ErrDatesUnavailable) {
				s.logger.WithFields(logrus.Fields{
					"booking_id": booking.ID,
					"room_id":    booking.RoomID,
					"expires_at": booking.ExpiresAt,
					"amount":     booking.TotalAmount,
				}).Error("Payment received for a lapsed hold whose dates were re-booked, refund required")
				return nil, models.ErrBookingExpired
			}
			return nil, err
		}
	}

	confirmed, err := s.store.ConfirmPendingBooking(ctx, bookingID, now)
	if err != nil {
		return nil, err
	}
	if confirmed == nil {
		// Lost a race: another trigger confirmed it, or the sweeper cancelled it
		current, err := s.store.GetBookingByID(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to get booking: %w", err)
		}
		switch {
		case current == nil:
			return nil, models.ErrBookingNotFound
		case current.Status == models.BookingStatusConfirmed:
			return current, nil
		default:
			return nil, models.ErrBookingNotPending
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   confirmed.ID,
		"total_amount": confirmed.TotalAmount,
	}).Info("Booking confirmed")

	s.afterConfirm(ctx, *confirmed)
	return confirmed, nil
}

// ConfirmFromPayment verifies a provider payment and confirms its booking
func (s *ReservationService) ConfirmFromPayment(ctx context.Context, paymentID string) (*models.Booking, error) {
	if s.checkout == nil {
		return nil, payment.ErrGatewayNotConfigured
	}

	result, err := s.checkout.VerifyPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !result.Approved {
		s.logger.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"booking_id": result.BookingID,
			"status":     result.Status,
		}).Info("Payment notification for non-approved payment")
		return nil, models.ErrPaymentNotApproved
	}

	return s.Confirm(ctx, result.BookingID)
}

func (s *ReservationService) afterConfirm(ctx context.Context, booking models.Booking) {
	guest, room := s.lookupParties(ctx, booking)

	if s.events != nil {
		s.events.Emit(models.PaymentConfirmedPayload{
			BookingID: booking.ID,
			GuestName: guest.FullName,
			RoomName:  room.Name,
			Amount:    booking.TotalAmount,
		})
	}
	if s.notifier != nil && guest.ID != "" {
		s.notifier.PaymentConfirmed(booking, guest, room)
	}
}

// lookupParties loads guest and room for messages; failures only degrade the text
func (s *ReservationService) lookupParties(ctx context.Context, booking models.Booking) (models.Guest, models.Room) {
	var guest models.Guest
	var room models.Room

	if g, err := s.guests.GetGuestByID(ctx, booking.GuestID); err != nil {
		s.logger.WithError(err).WithField("guest_id", booking.GuestID).Warn("Failed to load guest")
	} else if g != nil {
		guest = *g
	}
	if r, err := s.rooms.GetRoomByID(ctx, booking.RoomID); err != nil {
		s.logger.WithError(err).WithField("room_id", booking.RoomID).Warn("Failed to load room")
	} else if r != nil {
		room = *r
	}
	return guest, room
}

// ============================================================================
// READS AND DOCUMENTS
// ============================================================================

// GetBooking returns a booking by ID
func (s *ReservationService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	return booking, nil
}

// Quote prices a stay in a room without reserving anything
func (s *ReservationService) Quote(ctx context.Context, roomID string, durationDays int, cleaning bool) (*PriceQuote, error) {
	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, models.ErrRoomNotFound
	}
	return ComputePrice(room.MonthlyRate, durationDays, s.cleaningFor(cleaning))
}

// MarkDocumentSent records that the receipt or contract went out.
// Returns false when it had already been recorded.
func (s *ReservationService) MarkDocumentSent(ctx context.Context, bookingID string, kind models.DocumentKind) (bool, error) {
	if kind != models.DocumentReceipt && kind != models.DocumentContract {
		return false, models.ErrInvalidDocumentKind
	}
	if _, err := s.GetBooking(ctx, bookingID); err != nil {
		return false, err
	}
	return s.store.MarkDocumentSent(ctx, bookingID, kind, s.now())
}

// CreateCheckout (re)creates the hosted payment session for a pending booking
func (s *ReservationService) CreateCheckout(ctx context.Context, bookingID string) (*payment.CheckoutSession, error) {
	if s.checkout == nil {
		return nil, payment.ErrGatewayNotConfigured
	}

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPendingPayment {
		return nil, models.ErrBookingNotPending
	}
	if booking.IsHoldExpired(s.now()) {
		return nil, models.ErrBookingExpired
	}

	guest, room := s.lookupParties(ctx, *booking)
	return s.startCheckout(ctx, booking, &guest, &room)
}

func (s *ReservationService) startCheckout(ctx context.Context, booking *models.Booking, guest *models.Guest, room *models.Room) (*payment.CheckoutSession, error) {
	req := payment.CheckoutRequest{
		BookingID: booking.ID,
		Title: fmt.Sprintf("%s, %s to %s", room.Name,
			booking.StartDate.Format(models.DateLayout), booking.EndDate.Format(models.DateLayout)),
		Amount:     booking.TotalAmount,
		Currency:   s.config.Currency,
		PayerName:  guest.FullName,
		PayerEmail: guest.Email,
	}
	if booking.ExpiresAt != nil {
		req.ExpiresAt = *booking.ExpiresAt
	}
	return s.checkout.CreateCheckout(ctx, req)
}
