package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/citewatch/citewatch/internal/model"
)

// PushNotifier delivers low-latency notifications addressed by user id.
type PushNotifier interface {
	Push(ctx context.Context, userID string, payload *AlertPayload) error
}

// EmailSender delivers the heavier secondary notification.
type EmailSender interface {
	Send(ctx context.Context, userID string, payload *AlertPayload) error
}

// AlertPayload is the structured body handed to both channels.
type AlertPayload struct {
	MonitorID string         `json:"monitorId"`
	Query     string         `json:"query"`
	Domain    string         `json:"domain"`
	Changes   []model.Change `json:"changes"`
	SentAt    time.Time      `json:"sentAt"`
}

// RedisPush publishes alerts on a per-user pub/sub channel.
type RedisPush struct {
	client *redis.Client
}

// NewRedisPush builds a push notifier from a redis URL.
func NewRedisPush(url string) (*RedisPush, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisPush{client: redis.NewClient(opts)}, nil
}

// NewRedisPushWithClient wraps an existing client; used by tests.
func NewRedisPushWithClient(client *redis.Client) *RedisPush {
	return &RedisPush{client: client}
}

// Channel returns the pub/sub channel name for a user.
func Channel(userID string) string { return "alerts:" + userID }

func (p *RedisPush) Push(ctx context.Context, userID string, payload *AlertPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(userID), b).Err()
}

// Close releases the underlying redis connection.
func (p *RedisPush) Close() error { return p.client.Close() }

// WebhookEmail posts alert payloads to a transactional-mail endpoint.
type WebhookEmail struct {
	http *resty.Client
}

// NewWebhookEmail builds an email sender targeting url.
func NewWebhookEmail(url string, timeout time.Duration) *WebhookEmail {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookEmail{http: resty.New().SetBaseURL(url).SetTimeout(timeout)}
}

func (e *WebhookEmail) Send(ctx context.Context, userID string, payload *AlertPayload) error {
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"userId":  userID,
			"subject": fmt.Sprintf("Citation changes for %s", payload.Domain),
			"alert":   payload,
		}).
		Post("")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("email webhook status %d", resp.StatusCode())
	}
	return nil
}
