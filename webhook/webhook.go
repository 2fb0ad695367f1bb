// Package webhook posts signed run notifications to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/pdpscrape/config"
)

// EventRunCompleted is sent once per run, after the output is finalized.
const EventRunCompleted = "run.completed"

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Pdpscrape-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Notifier delivers events to one endpoint.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
}

// New returns a notifier for cfg, or nil when no URL is configured.
// A nil *Notifier drops every event.
func New(cfg config.WebhookConfig) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	return &Notifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second},
	}
}

// Send delivers event, retrying after 1s and 5s. It blocks until delivery
// succeeds, every attempt fails, or ctx is done.
func (n *Notifier) Send(ctx context.Context, event *Event) error {
	if n == nil {
		return nil
	}
	var err error
	for attempt, delay := range n.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = n.deliver(ctx, event); err == nil {
			slog.Info("webhook delivered",
				"url", n.url,
				"event", event.Type,
				"run_id", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", n.url,
			"event", event.Type,
			"run_id", event.RunID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return fmt.Errorf("webhook: all %d attempts failed: %w", len(n.delays), err)
}

// deliver makes a single signed POST.
func (n *Notifier) deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pdpscrape-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
