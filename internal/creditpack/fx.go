package creditpack

import (
	"github.com/smallbiznis/dreamforge/internal/creditpack/repository"
	"github.com/smallbiznis/dreamforge/internal/creditpack/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditpack.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
