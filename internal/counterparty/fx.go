package counterparty

import (
	"github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/internal/counterparty/repository"
	"github.com/smallbiznis/tradebook/internal/counterparty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("counterparty.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		service.New,
		func(s *service.Service) domain.Service { return s },
		func(s *service.Service) domain.Directory { return s },
	),
)
