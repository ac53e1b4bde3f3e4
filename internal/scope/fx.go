package scope

import "go.uber.org/fx"

var Module = fx.Module("scope",
	fx.Provide(NewResolver),
)
