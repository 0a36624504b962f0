package cutoff

import (
	"github.com/smallbiznis/tradebook/internal/cutoff/repository"
	"github.com/smallbiznis/tradebook/internal/cutoff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cutoff.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
