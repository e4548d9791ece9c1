package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/pizzeria/dashboard-delivery-service/config"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ------------------- TOPICS (ROUTING KEYS) -----------------
	RoutingOrderCreated       = "order.created"
	RoutingOrderStatusChanged = "order.status_changed"
	RoutingOrderCompleted     = "order.completed"
	RoutingOrderUpdated       = "order.updated"
	RoutingDeliveryUpdated    = "delivery.updated"
	RoutingMetrics            = "metrics.performance"
	RoutingSessionUpdated     = "session.updated"

	// ------------------- POISON --------------------------------
	PoisonRoutingKey = "dashboard-delivery.poison"
)

const tracerName = "github.com/pizzeria/dashboard-delivery-service/internal/handler/amqp"

// EndpointFactory builds broker endpoints; infra/pubsub.Provider satisfies it.
type EndpointFactory interface {
	BuildPublisher(exchange string) (message.Publisher, error)
	BuildSubscriber(queue, exchange, routingKey string) (message.Subscriber, error)
}

// OrderHandler maps order events from the ordering backend onto dashboard broadcasts.
type OrderHandler struct {
	notifier service.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewOrderHandler(notifier service.Notifier, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
}

// [REGISTRATION_PIPELINE]
func (h *OrderHandler) RegisterHandlers(router *message.Router, factory EndpointFactory, cfg *config.Config) error {
	exchange := cfg.AMQP.OrdersExchange

	poisonPub, err := factory.BuildPublisher(exchange)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}
	poison, err := middleware.PoisonQueue(poisonPub, PoisonRoutingKey)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_ORDER_CREATED", RoutingOrderCreated, Bind(h, h.OnOrderCreatedV1)},
		{"ON_ORDER_STATUS", RoutingOrderStatusChanged, Bind(h, h.OnOrderStatusChangedV1)},
		{"ON_ORDER_COMPLETED", RoutingOrderCompleted, Bind(h, h.OnOrderCompletedV1)},
		{"ON_ORDER_UPDATED", RoutingOrderUpdated, Bind(h, h.OnOrderUpdatedV1)},
		{"ON_DELIVERY_UPDATED", RoutingDeliveryUpdated, Bind(h, h.OnDeliveryUpdatedV1)},
		{"ON_METRICS", RoutingMetrics, Bind(h, h.OnPerformanceMetricsV1)},
		{"ON_SESSION_UPDATED", RoutingSessionUpdated, Bind(h, h.OnSessionUpdatedV1)},
	}

	// [UNIQUE_HANDLER_QUEUE]
	// Every node needs every order event for its own dashboards, so each node
	// consumes its own queues. Format: dashboard-delivery.b23a8f12.ON_ORDER_CREATED
	instanceID := uuid.NewString()[:8]
	retry := NewRetryMiddleware(h.logger)

	for _, c := range configs {
		queue := fmt.Sprintf("%s.%s.%s", cfg.AMQP.QueuePrefix, instanceID, c.name)

		sub, err := factory.BuildSubscriber(queue, exchange, c.topic)
		if err != nil {
			return err
		}

		router.AddNoPublisherHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			poison,
			retry.Middleware,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("AMQP_PIPELINE_READY", "exchange", exchange, "instance", instanceID, "handlers", len(configs))
	return nil
}

// RunRouter runs the router until ctx ends or Close is called.
func RunRouter(ctx context.Context, router *message.Router, logger *slog.Logger) {
	if err := router.Run(ctx); err != nil {
		logger.Error("AMQP_ROUTER_STOPPED", "err", err)
	}
}
