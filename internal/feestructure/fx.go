package feestructure

import (
	"github.com/Shihab-md/unis-server-sub000/internal/feestructure/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feestructure.service",
	fx.Provide(service.NewService),
)
