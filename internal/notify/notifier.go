package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meneses-pt/goals.zone/internal/db"
)

// Rule destinations. Tweet rules always use DestinationTwitter.
const (
	DestinationTwitter = "twitter"
	DestinationDiscord = "discord"
	DestinationSlack   = "slack"
	DestinationIFTTT   = "ifttt"
	DestinationAMQP    = "amqp"
	DestinationMQTT    = "mqtt"
)

// ErrRateLimited marks a delivery refused with 429. It is not retried or alerted.
var ErrRateLimited = errors.New("rate limited")

// Delivery is one rendered message for one rule.
type Delivery struct {
	Rule    db.NotifyRuleRow
	Kind    Kind
	MatchID int64
	Message string
}

// Notifier delivers a message to one destination type.
type Notifier interface {
	Deliver(ctx context.Context, d Delivery) error
}

// WebhookNotifier posts {field: message} as JSON to the rule's webhook url.
type WebhookNotifier struct {
	client *http.Client
	field  string
}

func NewDiscordNotifier(timeout time.Duration) *WebhookNotifier {
	return newWebhookNotifier("content", timeout)
}

func NewSlackNotifier(timeout time.Duration) *WebhookNotifier {
	return newWebhookNotifier("text", timeout)
}

func NewIFTTTNotifier(timeout time.Duration) *WebhookNotifier {
	return newWebhookNotifier("message", timeout)
}

func newWebhookNotifier(field string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookNotifier{client: &http.Client{Timeout: timeout}, field: field}
}

func (n *WebhookNotifier) Deliver(ctx context.Context, d Delivery) error {
	if d.Rule.WebhookURL == "" {
		return fmt.Errorf("rule %d has no webhook url", d.Rule.ID)
	}
	return postJSON(ctx, n.client, d.Rule.WebhookURL, map[string]string{n.field: d.Message})
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("status 429: %w", ErrRateLimited)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}
