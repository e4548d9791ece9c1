package registry

import (
	"context"
	"log/slog"

	"github.com/pizzeria/dashboard-delivery-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(cfg *config.Config, logger *slog.Logger, observer PresenceObserver) *Hub {
			return NewHub(
				WithLogger(logger.With(slog.String("component", "hub"))),
				WithPresenceObserver(observer),
				WithFanoutLimit(cfg.Hub.FanoutLimit),
			)
		},
		func(h *Hub) Hubber { return h },
	),
	fx.Invoke(func(lc fx.Lifecycle, h *Hub) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return h.Shutdown(ctx) // [GRACEFUL_SHUTDOWN] Close every dashboard connection
			},
		})
	}),
)
