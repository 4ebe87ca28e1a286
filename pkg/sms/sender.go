// Package sms delivers citizen-facing text messages through an HTTP SMS
// gateway. Delivery is best-effort: failures are queued for retry by the
// dispatch worker, never surfaced to the capture flow.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RequestTimeout for gateway requests
const RequestTimeout = 10 * time.Second

// Message represents one outbound SMS
type Message struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	SenderID string `json:"sender_id,omitempty"`
}

// gatewayResponse is the provider's reply envelope
type gatewayResponse struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Sender delivers a single SMS
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// HTTPSender sends messages through a JSON HTTP gateway
type HTTPSender struct {
	client      *http.Client
	providerURL string
	apiKey      string
	senderID    string
	logger      *slog.Logger
}

// NewHTTPSender creates a gateway-backed sender
func NewHTTPSender(providerURL, apiKey, senderID string, logger *slog.Logger) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{
			Timeout: RequestTimeout,
		},
		providerURL: providerURL,
		apiKey:      apiKey,
		senderID:    senderID,
		logger:      logger,
	}
}

// Send delivers a single message through the gateway
func (s *HTTPSender) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return errors.New("destination phone is required")
	}
	if !isValidPhone(msg.To) {
		return fmt.Errorf("invalid phone number: %s", msg.To)
	}

	if msg.SenderID == "" {
		msg.SenderID = s.senderID
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sms message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.providerURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sms response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("sms gateway rejected message", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var gwResp gatewayResponse
	if err := json.Unmarshal(body, &gwResp); err != nil {
		s.logger.Error("failed to parse sms response", "body", string(body), "error", err)
		return fmt.Errorf("failed to parse sms response: %w", err)
	}

	if gwResp.Status == "error" {
		s.logger.Warn("sms delivery failed", "error", gwResp.Message, "to", msg.To)
		return fmt.Errorf("sms delivery failed: %s", gwResp.Message)
	}

	s.logger.Info("sms sent", "messageId", gwResp.ID)
	return nil
}

// NoopSender logs messages instead of sending them. Used when SMS delivery
// is disabled in configuration.
type NoopSender struct {
	logger *slog.Logger
}

// NewNoopSender creates a sender that only logs
func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// Send logs the message and reports success
func (s *NoopSender) Send(ctx context.Context, msg *Message) error {
	s.logger.Info("sms delivery disabled, dropping message", "to", msg.To)
	return nil
}

// isValidPhone accepts local Argentine numbers and E.164 with an optional
// leading plus.
func isValidPhone(phone string) bool {
	digits := 0
	for i, r := range phone {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
		digits++
	}
	return digits >= 8 && digits <= 15
}
