package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		NewTokenAuthenticator,

		// [DECORATION_LAYER] Every Auther consumer gets the logging decorator.
		// fx.Decorate would only reach consumers inside this module.
		func(a *TokenAuthenticator, logger *slog.Logger) Auther {
			return NewAutherMiddleware(a, logger.With("component", "auth"))
		},
		fx.Annotate(
			NewOrderNotifier,
			fx.As(new(Notifier)),
		),
	),
)
