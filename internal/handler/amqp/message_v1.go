package amqp

import (
	"context"

	"github.com/pizzeria/dashboard-delivery-service/internal/service/dto"
)

// Invalid payloads are acknowledged and dropped: redelivery cannot fix them.

func (h *OrderHandler) OnOrderCreatedV1(_ context.Context, raw *dto.OrderCreatedV1) error {
	if raw.ID <= 0 {
		h.logger.Warn("INVALID_PAYLOAD: order id missing", "routing_key", RoutingOrderCreated)
		return nil
	}
	h.notifier.NotifyNewOrder(raw.ToPayload(h.now()))
	return nil
}

func (h *OrderHandler) OnOrderStatusChangedV1(_ context.Context, raw *dto.OrderStatusChangedV1) error {
	if raw.OrderID <= 0 || raw.NewStatus == "" {
		h.logger.Warn("INVALID_PAYLOAD: order id or new status missing", "routing_key", RoutingOrderStatusChanged)
		return nil
	}
	h.notifier.NotifyOrderStatusChange(raw.OrderID, raw.OldStatus, raw.NewStatus, raw.CustomerName)
	return nil
}

func (h *OrderHandler) OnOrderCompletedV1(_ context.Context, raw *dto.OrderCompletedV1) error {
	if raw.ID <= 0 {
		h.logger.Warn("INVALID_PAYLOAD: order id missing", "routing_key", RoutingOrderCompleted)
		return nil
	}
	h.notifier.NotifyOrderCompleted(raw.ID, raw.CustomerName)
	return nil
}

func (h *OrderHandler) OnOrderUpdatedV1(_ context.Context, raw *dto.DataV1) error {
	h.notifier.NotifyOrderUpdate(*raw)
	return nil
}

func (h *OrderHandler) OnDeliveryUpdatedV1(_ context.Context, raw *dto.DataV1) error {
	h.notifier.NotifyDeliveryUpdate(*raw)
	return nil
}

func (h *OrderHandler) OnPerformanceMetricsV1(_ context.Context, raw *dto.DataV1) error {
	h.notifier.SendPerformanceMetrics(*raw)
	return nil
}

func (h *OrderHandler) OnSessionUpdatedV1(_ context.Context, raw *dto.DataV1) error {
	h.notifier.NotifySessionUpdate(*raw)
	return nil
}
