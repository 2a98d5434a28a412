package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/models"
	"github.com/staylong/rental-backend/pkg/notify"
	"github.com/staylong/rental-backend/pkg/validator"
)

// SettingsReader exposes the current admin settings
type SettingsReader interface {
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
}

// DocumentRecorder records document delivery on a booking
type DocumentRecorder interface {
	MarkDocumentSent(ctx context.Context, id string, kind models.DocumentKind, now time.Time) (bool, error)
}

// NotificationConfig holds notification delivery settings
type NotificationConfig struct {
	SendTimeout time.Duration
}

// DefaultNotificationConfig returns default configuration
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{SendTimeout: 15 * time.Second}
}

// NotificationService sends guest notifications in the background.
// Delivery failures are logged and never reach the booking flow.
type NotificationService struct {
	gateways  map[notify.Channel]notify.Gateway
	settings  SettingsReader
	documents DocumentRecorder
	phone     *validator.PhoneValidator
	config    NotificationConfig
	logger    *logrus.Logger
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewNotificationService creates a notification service. Channels without a
// gateway are skipped.
func NewNotificationService(
	gateways []notify.Gateway,
	settings SettingsReader,
	documents DocumentRecorder,
	config NotificationConfig,
	logger *logrus.Logger,
) *NotificationService {
	byChannel := make(map[notify.Channel]notify.Gateway, len(gateways))
	for _, g := range gateways {
		byChannel[g.Channel()] = g
		logger.WithField("channel", g.Channel()).Infof("Notification gateway: %s", g.GetName())
	}
	return &NotificationService{
		gateways:  byChannel,
		settings:  settings,
		documents: documents,
		phone:     validator.NewPhoneValidator(),
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// BookingCreated notifies the guest that the hold was placed
func (s *NotificationService) BookingCreated(booking models.Booking, guest models.Guest, room models.Room) {
	s.dispatch("booking_created", booking.ID, func(ctx context.Context, settings models.AdminSettings) {
		if booking.PaymentMethod == models.PaymentMethodBankTransfer && !settings.NotifyOnBankTransfer {
			return
		}

		subject := fmt.Sprintf("Reservation %s received", shortID(booking.ID))
		body := fmt.Sprintf("Hi %s, we received your reservation for %s from %s to %s. Total: %.2f. Status: %s.",
			guest.FullName, room.Name,
			booking.StartDate.Format(models.DateLayout), booking.EndDate.Format(models.DateLayout),
			booking.TotalAmount, booking.Status)

		if settings.NotifyEmailOnBooking {
			s.send(ctx, notify.ChannelEmail, booking.ID, notify.Message{To: guest.Email, Subject: subject, Body: body})
		}
		if settings.NotifyWhatsAppOnBooking {
			s.sendWhatsApp(ctx, booking.ID, guest.Phone, settings.WhatsAppSenderNumber, body)
		}
	})
}

// PaymentConfirmed notifies the guest of the confirmation and, when enabled,
// sends the receipt and records it on the booking
func (s *NotificationService) PaymentConfirmed(booking models.Booking, guest models.Guest, room models.Room) {
	s.dispatch("payment_confirmed", booking.ID, func(ctx context.Context, settings models.AdminSettings) {
		if settings.NotifyOnPaymentConfirmed {
			body := fmt.Sprintf("Hi %s, your payment of %.2f for %s is confirmed. Check-in: %s.",
				guest.FullName, booking.TotalAmount, room.Name, booking.StartDate.Format(models.DateLayout))
			s.send(ctx, notify.ChannelEmail, booking.ID, notify.Message{
				To:      guest.Email,
				Subject: fmt.Sprintf("Reservation %s confirmed", shortID(booking.ID)),
				Body:    body,
			})
			s.sendWhatsApp(ctx, booking.ID, guest.Phone, settings.WhatsAppSenderNumber, body)
		}

		if settings.AutoSendReceipt && !booking.ReceiptSent {
			s.sendReceipt(ctx, booking, guest, room)
		}
	})
}

func (s *NotificationService) sendReceipt(ctx context.Context, booking models.Booking, guest models.Guest, room models.Room) {
	ok := s.send(ctx, notify.ChannelEmail, booking.ID, notify.Message{
		To:      guest.Email,
		Subject: fmt.Sprintf("Receipt for reservation %s", shortID(booking.ID)),
		Body: fmt.Sprintf("Receipt\nBooking: %s\nRoom: %s\nDates: %s to %s\nAmount paid: %.2f",
			booking.ID, room.Name,
			booking.StartDate.Format(models.DateLayout), booking.EndDate.Format(models.DateLayout),
			booking.TotalAmount),
	})
	if !ok || s.documents == nil {
		return
	}

	if _, err := s.documents.MarkDocumentSent(ctx, booking.ID, models.DocumentReceipt, s.now()); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to record receipt delivery")
	}
}

// dispatch runs fn in the background with the current settings
func (s *NotificationService) dispatch(event, bookingID string, fn func(ctx context.Context, settings models.AdminSettings)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithFields(logrus.Fields{
					"event":      event,
					"booking_id": bookingID,
					"panic":      r,
				}).Error("Notification dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
		defer cancel()

		settings := models.DefaultAdminSettings()
		if s.settings != nil {
			current, err := s.settings.GetSettings(ctx)
			if err != nil {
				s.logger.WithError(err).Warn("Failed to load admin settings, using defaults")
			} else {
				settings = *current
			}
		}

		fn(ctx, settings)
	}()
}

func (s *NotificationService) sendWhatsApp(ctx context.Context, bookingID, phone, sender, body string) {
	to, err := s.phone.Validate(phone)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"error":      err.Error(),
		}).Warn("Skipping WhatsApp notification, guest phone invalid")
		return
	}
	s.send(ctx, notify.ChannelWhatsApp, bookingID, notify.Message{To: to, From: sender, Body: body})
}

// send delivers msg on channel and reports success
func (s *NotificationService) send(ctx context.Context, channel notify.Channel, bookingID string, msg notify.Message) bool {
	gateway, ok := s.gateways[channel]
	if !ok {
		s.logger.WithField("channel", channel).Debug("No gateway configured for channel")
		return false
	}

	messageID, err := gateway.Send(ctx, msg)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"channel":    channel,
			"gateway":    gateway.GetName(),
			"booking_id": bookingID,
			"error":      err.Error(),
		}).Error("Failed to send notification")
		return false
	}

	s.logger.WithFields(logrus.Fields{
		"channel":    channel,
		"booking_id": bookingID,
		"message_id": messageID,
	}).Debug("Notification sent")
	return true
}

// Wait blocks until in-flight notifications finish
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
