package invoice

import (
	"github.com/Shihab-md/unis-server-sub000/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(service.NewService),
)
