package service

import (
	"log/slog"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
)

// Notifier turns order lifecycle facts into dashboard broadcasts.
type Notifier interface {
	NotifyNewOrder(p *event.NewOrderPayload)
	NotifyOrderStatusChange(orderID int64, oldStatus, newStatus string, customerName *string)
	NotifyOrderCompleted(orderID int64, customerName string)
	NotifyOrderUpdate(data map[string]any)
	NotifyDeliveryUpdate(data map[string]any)
	SendPerformanceMetrics(data map[string]any)
	NotifySessionUpdate(data map[string]any)
}

var _ Notifier = (*OrderNotifier)(nil)

type OrderNotifier struct {
	hub    registry.Hubber
	logger *slog.Logger
	now    func() time.Time
}

func NewOrderNotifier(hub registry.Hubber, logger *slog.Logger) *OrderNotifier {
	return &OrderNotifier{
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

func (n *OrderNotifier) NotifyNewOrder(p *event.NewOrderPayload) {
	n.hub.Broadcast(event.NewOrderMessage(p, n.now()), registry.WithEventType(event.NewOrder))
	n.logger.Info("NEW_ORDER_BROADCAST", "order_id", p.OrderID)
}

func (n *OrderNotifier) NotifyOrderStatusChange(orderID int64, oldStatus, newStatus string, customerName *string) {
	n.hub.Broadcast(
		event.NewStatusChangeMessage(orderID, oldStatus, newStatus, customerName, n.now()),
		registry.WithEventType(event.OrderStatusChange),
	)
	n.logger.Info("ORDER_STATUS_BROADCAST", "order_id", orderID, "old_status", oldStatus, "new_status", newStatus)
}

func (n *OrderNotifier) NotifyOrderCompleted(orderID int64, customerName string) {
	n.hub.Broadcast(event.NewCompletedMessage(orderID, customerName, n.now()), registry.WithEventType(event.OrderCompleted))
	n.logger.Info("ORDER_COMPLETED_BROADCAST", "order_id", orderID)
}

func (n *OrderNotifier) NotifyOrderUpdate(data map[string]any) {
	n.broadcastData(event.OrderUpdate, data)
}

func (n *OrderNotifier) NotifyDeliveryUpdate(data map[string]any) {
	n.broadcastData(event.DeliveryUpdate, data)
}

func (n *OrderNotifier) SendPerformanceMetrics(data map[string]any) {
	n.broadcastData(event.PerformanceMetrics, data)
}

func (n *OrderNotifier) NotifySessionUpdate(data map[string]any) {
	n.broadcastData(event.SessionUpdate, data)
}

func (n *OrderNotifier) broadcastData(t event.EventType, data map[string]any) {
	n.hub.Broadcast(event.NewDataMessage(t, data, n.now()), registry.WithEventType(t))
	n.logger.Debug("DATA_EVENT_BROADCAST", "event_type", t.String())
}
