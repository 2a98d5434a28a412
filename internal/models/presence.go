package models

import (
	"fmt"
	"time"
)

// VisitorSession is an anonymous viewer of a room page
type VisitorSession struct {
	ID       string    `json:"id"`
	RoomSlug string    `json:"room_slug"`
	RoomName string    `json:"room_name,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
	Mobile   bool      `json:"mobile"`
}

// ActivityEventType names the kind of an activity feed entry
type ActivityEventType string

const (
	EventBookingCreated   ActivityEventType = "booking_created"
	EventPaymentConfirmed ActivityEventType = "payment_confirmed"
	EventBankTransfer     ActivityEventType = "bank_transfer"
	EventVisitorJoined    ActivityEventType = "visitor_joined"
	EventVisitorLeft      ActivityEventType = "visitor_left"
)

// EventPayload is implemented by every activity payload variant.
// The event type is derived from the payload so the two cannot disagree.
type EventPayload interface {
	EventType() ActivityEventType
	Message() string
}

// ActivityEvent is one entry of the dashboard activity feed
type ActivityEvent struct {
	ID        string            `json:"id"`
	Type      ActivityEventType `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   EventPayload      `json:"payload"`
	Message   string            `json:"message"`
}

// BookingCreatedPayload is emitted when a card-checkout hold is created
type BookingCreatedPayload struct {
	BookingID string  `json:"booking_id"`
	GuestName string  `json:"guest_name"`
	RoomName  string  `json:"room_name"`
	Amount    float64 `json:"amount"`
}

func (BookingCreatedPayload) EventType() ActivityEventType { return EventBookingCreated }

func (p BookingCreatedPayload) Message() string {
	return fmt.Sprintf("%s started a booking for %s (%.0f)", p.GuestName, p.RoomName, p.Amount)
}

// PaymentConfirmedPayload is emitted when a booking becomes confirmed
type PaymentConfirmedPayload struct {
	BookingID string  `json:"booking_id"`
	GuestName string  `json:"guest_name"`
	RoomName  string  `json:"room_name"`
	Amount    float64 `json:"amount"`
}

func (PaymentConfirmedPayload) EventType() ActivityEventType { return EventPaymentConfirmed }

func (p PaymentConfirmedPayload) Message() string {
	return fmt.Sprintf("Payment confirmed for %s at %s (%.0f)", p.GuestName, p.RoomName, p.Amount)
}

// BankTransferPayload is emitted when a guest chooses manual bank transfer
type BankTransferPayload struct {
	BookingID string  `json:"booking_id"`
	GuestName string  `json:"guest_name"`
	RoomName  string  `json:"room_name"`
	Amount    float64 `json:"amount"`
}

func (BankTransferPayload) EventType() ActivityEventType { return EventBankTransfer }

func (p BankTransferPayload) Message() string {
	return fmt.Sprintf("%s will pay %s by bank transfer (%.0f)", p.GuestName, p.RoomName, p.Amount)
}

// VisitorJoinedPayload is emitted when a new presence session starts
type VisitorJoinedPayload struct {
	SessionID string `json:"session_id"`
	RoomSlug  string `json:"room_slug"`
	RoomName  string `json:"room_name,omitempty"`
}

func (VisitorJoinedPayload) EventType() ActivityEventType { return EventVisitorJoined }

func (p VisitorJoinedPayload) Message() string {
	return fmt.Sprintf("A visitor is viewing %s", displayRoom(p.RoomName, p.RoomSlug))
}

// VisitorLeftPayload is emitted on an explicit leave
type VisitorLeftPayload struct {
	SessionID string `json:"session_id"`
	RoomSlug  string `json:"room_slug"`
	RoomName  string `json:"room_name,omitempty"`
}

func (VisitorLeftPayload) EventType() ActivityEventType { return EventVisitorLeft }

func (p VisitorLeftPayload) Message() string {
	return fmt.Sprintf("A visitor left %s", displayRoom(p.RoomName, p.RoomSlug))
}

func displayRoom(name, slug string) string {
	if name != "" {
		return name
	}
	return slug
}

// PresenceSnapshot is the aggregate view returned to clients
type PresenceSnapshot struct {
	Total int            `json:"total"`
	Rooms map[string]int `json:"rooms"`
}

// PresenceRequest is the POST /presence body
type PresenceRequest struct {
	Action    string `json:"action" binding:"required,oneof=join heartbeat leave"`
	SessionID string `json:"session_id"`
	RoomSlug  string `json:"room_slug"`
	RoomName  string `json:"room_name"`
}
