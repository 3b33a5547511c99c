package slack

import (
	"strings"

	"github.com/smallbiznis/dreamforge/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	url := strings.TrimSpace(cfg.Notification.SlackWebhookURL)
	if url == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(url, cfg.Notification.Timeout)
}
