package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogGateway writes notifications to the log instead of sending them (development)
type LogGateway struct {
	channel Channel
	logger  *logrus.Logger
}

// NewLogGateway creates a development gateway for channel
func NewLogGateway(channel Channel, logger *logrus.Logger) *LogGateway {
	return &LogGateway{channel: channel, logger: logger}
}

// Send logs the message
func (g *LogGateway) Send(ctx context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	g.logger.WithFields(logrus.Fields{
		"channel":    g.channel,
		"to":         msg.To,
		"subject":    msg.Subject,
		"message_id": id,
	}).Info("[DEV] Notification not sent: " + msg.Body)
	return id, nil
}

// Channel returns the configured channel
func (g *LogGateway) Channel() Channel { return g.channel }

// GetName returns the name of this gateway
func (g *LogGateway) GetName() string { return "Log Gateway (" + string(g.channel) + ")" }
