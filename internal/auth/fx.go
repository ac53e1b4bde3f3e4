package auth

import (
	"github.com/Shihab-md/unis-server-sub000/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.NewService),
)
