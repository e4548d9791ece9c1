package pubsub

import (
	"context"
	"log/slog"

	"github.com/pizzeria/dashboard-delivery-service/config"
	infrapubsub "github.com/pizzeria/dashboard-delivery-service/infra/pubsub"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
	"go.uber.org/fx"
)

// Module publishes registry presence changes to the presence exchange.
var Module = fx.Module("presence-publisher",
	fx.Provide(
		func(p *infrapubsub.Provider, cfg *config.Config, logger *slog.Logger) (EventDispatcher, error) {
			pub, err := p.BuildPublisher(cfg.AMQP.PresenceExchange)
			if err != nil {
				return nil, err
			}
			return NewEventDispatcher(pub, logger), nil
		},
		func(lc fx.Lifecycle, d EventDispatcher, cfg *config.Config, logger *slog.Logger) *PresencePublisher {
			p := NewPresencePublisher(d, logger, cfg.AMQP.PresenceMailboxSize)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					p.Start()
					return nil
				},
				OnStop: func(context.Context) error {
					p.Stop()
					return d.Close()
				},
			})
			return p
		},
		func(p *PresencePublisher) registry.PresenceObserver { return p },
	),
)
