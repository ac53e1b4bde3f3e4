package paymentbatch

import (
	"go.uber.org/fx"

	"github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/service"
)

var Module = fx.Module("paymentbatch.service",
	fx.Provide(service.NewService),
)
