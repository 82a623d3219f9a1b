// Package notify holds the outbound message transports. Delivery is
// best-effort throughout: transports report errors, callers log and
// count them, nothing retries synchronously.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Transport ships one message to its recipients.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// LogTransport writes messages to the log. It is the default transport
// when no webhook is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport builds a log-backed transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("notification",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// WebhookTransport POSTs messages as JSON to a fixed endpoint, typically
// a mail relay or chat bridge.
type WebhookTransport struct {
	url    string
	client *http.Client
}

// NewWebhookTransport builds a webhook transport for the given URL.
func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WebhookTransport) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
