package generation

import (
	"github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/smallbiznis/dreamforge/internal/generation/replicate"
	"github.com/smallbiznis/dreamforge/internal/generation/repository"
	"github.com/smallbiznis/dreamforge/internal/generation/service"
	"github.com/smallbiznis/dreamforge/internal/objectstore"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.service",
	fx.Provide(repository.Provide),
	fx.Provide(replicate.NewClient),
	fx.Provide(func(c *replicate.Client) domain.Provider { return c }),
	fx.Provide(func(c *objectstore.Client) domain.ObjectStore { return c }),
	fx.Provide(service.NewService),
)
