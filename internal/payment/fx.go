package payment

import (
	"github.com/smallbiznis/dreamforge/internal/payment/adapters"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters/lemonsqueezy"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters/paddle"
	"github.com/smallbiznis/dreamforge/internal/payment/checkout"
	"github.com/smallbiznis/dreamforge/internal/payment/repository"
	"github.com/smallbiznis/dreamforge/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			lemonsqueezy.NewFactory(),
			paddle.NewFactory(),
		)
	}),
	fx.Provide(service.NewService),
	checkout.Module,
)
