package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPConfig holds configuration for a JSON-over-HTTP provider
type HTTPConfig struct {
	APIURL   string
	APIToken string
	From     string // default sender (email address or phone number)
	Timeout  time.Duration
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends payload with a bearer token and decodes the response into out
func postJSON(ctx context.Context, client *http.Client, url, token string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// WhatsAppGateway sends text messages through a WhatsApp Cloud style API
type WhatsAppGateway struct {
	config HTTPConfig
	client *http.Client
}

// NewWhatsAppGateway creates a new WhatsApp gateway
func NewWhatsAppGateway(config HTTPConfig) *WhatsAppGateway {
	return &WhatsAppGateway{config: config, client: newHTTPClient(config.Timeout)}
}

type whatsAppRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	From             string `json:"from,omitempty"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Send sends msg.Body to msg.To
func (g *WhatsAppGateway) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("whatsapp: recipient is required")
	}

	req := whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(msg.To, "+"),
		From:             msg.From,
		Type:             "text",
	}
	if req.From == "" {
		req.From = g.config.From
	}
	req.Text.Body = msg.Body

	var resp whatsAppResponse
	if err := postJSON(ctx, g.client, g.config.APIURL, g.config.APIToken, req, &resp); err != nil {
		return "", fmt.Errorf("whatsapp: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].ID, nil
}

// Channel returns ChannelWhatsApp
func (g *WhatsAppGateway) Channel() Channel { return ChannelWhatsApp }

// GetName returns the name of this gateway
func (g *WhatsAppGateway) GetName() string { return "WhatsApp HTTP Gateway" }

// EmailGateway sends plain-text mail through a transactional email API
type EmailGateway struct {
	config HTTPConfig
	client *http.Client
}

// NewEmailGateway creates a new email gateway
func NewEmailGateway(config HTTPConfig) *EmailGateway {
	return &EmailGateway{config: config, client: newHTTPClient(config.Timeout)}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// Send sends the email
func (g *EmailGateway) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("email: recipient is required")
	}

	from := msg.From
	if from == "" {
		from = g.config.From
	}

	var resp emailResponse
	err := postJSON(ctx, g.client, g.config.APIURL, g.config.APIToken, emailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("email: %w", err)
	}
	return resp.ID, nil
}

// Channel returns ChannelEmail
func (g *EmailGateway) Channel() Channel { return ChannelEmail }

// GetName returns the name of this gateway
func (g *EmailGateway) GetName() string { return "Email HTTP Gateway" }
