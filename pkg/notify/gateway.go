package notify

import "context"

// Channel is the delivery channel of a notification
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Message is one outbound notification
type Message struct {
	To      string // email address or E.164 phone number
	From    string // optional sender override (WhatsApp sender number)
	Subject string // email only
	Body    string
}

// Gateway defines the interface for delivering notifications on one channel
type Gateway interface {
	// Send delivers the message and returns the provider's message ID
	Send(ctx context.Context, msg Message) (string, error)

	// Channel returns the channel this gateway delivers on
	Channel() Channel

	// GetName returns the name of the gateway implementation
	GetName() string
}
