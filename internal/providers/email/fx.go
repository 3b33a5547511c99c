package email

import (
	"strings"

	"github.com/smallbiznis/dreamforge/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig falls back to a no-op sender when SMTP is not configured.
func NewFromConfig(cfg config.Config) Provider {
	n := cfg.Notification
	if strings.TrimSpace(n.SMTPHost) == "" || strings.TrimSpace(n.SMTPFrom) == "" {
		return &NoOpProvider{}
	}
	return NewSMTP(Config{
		Host:     n.SMTPHost,
		Port:     n.SMTPPort,
		Username: n.SMTPUser,
		Password: n.SMTPPassword,
		From:     n.SMTPFrom,
	})
}
