package providers

import (
	"github.com/smallbiznis/dreamforge/internal/providers/email"
	"github.com/smallbiznis/dreamforge/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
