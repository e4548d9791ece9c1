package cmd

import (
	"log/slog"

	"github.com/pizzeria/dashboard-delivery-service/config"
	infrapubsub "github.com/pizzeria/dashboard-delivery-service/infra/pubsub"
	httpsrv "github.com/pizzeria/dashboard-delivery-service/infra/server/http"
	pubsubadapter "github.com/pizzeria/dashboard-delivery-service/internal/adapter/pubsub"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
	amqphandler "github.com/pizzeria/dashboard-delivery-service/internal/handler/amqp"
	httphandler "github.com/pizzeria/dashboard-delivery-service/internal/handler/http"
	wshandler "github.com/pizzeria/dashboard-delivery-service/internal/handler/ws"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(append(appOptions(cfg),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)...)
}

func appOptions(cfg *config.Config) []fx.Option {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideTracerProvider,
		),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		service.Module,
		registry.Module,
		wshandler.Module,
		httphandler.Module,
		httpsrv.Module,
	}

	// [OPTIONAL_BUS] without a broker the hub runs standalone
	if cfg.AMQP.Enabled {
		opts = append(opts,
			fx.Provide(ProvideWatermillLogger, infrapubsub.NewProvider),
			pubsubadapter.Module,
			amqphandler.Module,
		)
	} else {
		opts = append(opts, fx.Provide(registry.NopObserver))
	}

	return opts
}
