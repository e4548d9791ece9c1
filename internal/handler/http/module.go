package httphandler

import "go.uber.org/fx"

var Module = fx.Module("http-handler",
	fx.Provide(NewDashboardHandler),
)
