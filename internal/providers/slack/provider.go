package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Provider interface {
	PostMessage(ctx context.Context, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, message string) error {
	return nil
}

// WebhookProvider posts to a Slack incoming-webhook URL.
type WebhookProvider struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		client: resty.New().SetTimeout(timeout),
		url:    strings.TrimSpace(url),
	}
}

func (p *WebhookProvider) PostMessage(ctx context.Context, message string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": message}).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook: status %d", resp.StatusCode())
	}
	return nil
}
