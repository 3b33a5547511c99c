package auth

import (
	"github.com/smallbiznis/dreamforge/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.New),
)
