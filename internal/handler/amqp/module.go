package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pizzeria/dashboard-delivery-service/config"
	infrapubsub "github.com/pizzeria/dashboard-delivery-service/infra/pubsub"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewOrderHandler,
		NewWatermillRouter,
		func(p *infrapubsub.Provider) EndpointFactory { return p },
	),

	fx.Invoke(func(h *OrderHandler, router *message.Router, factory EndpointFactory, cfg *config.Config) error {
		return h.RegisterHandlers(router, factory, cfg)
	}),
	fx.Invoke(func(lc fx.Lifecycle, router *message.Router, logger *slog.Logger) {
		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go RunRouter(ctx, router, logger)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return router.Close()
			},
		})
	}),
)
