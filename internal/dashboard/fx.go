package dashboard

import (
	"go.uber.org/fx"

	"github.com/Shihab-md/unis-server-sub000/internal/dashboard/service"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(service.NewService),
)
