package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures frames written by a real hub.
type recordingTransport struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingTransport) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, data)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingTransport) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.frames[len(r.frames)-1])
}

func TestOrderNotifierRespectsSubscriptions(t *testing.T) {
	assert := assert.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := registry.NewHub(registry.WithLogger(logger))

	orders := &recordingTransport{}
	delivery := &recordingTransport{}
	require.NoError(t, hub.Connect(orders, "orders", &model.UserInfo{Role: model.RoleStaff}))
	require.NoError(t, hub.Connect(delivery, "delivery", &model.UserInfo{Role: model.RoleStaff}))
	hub.UpdateSubscriptions("orders", []string{"new_order", "order_status_change", "order_completed"})
	hub.UpdateSubscriptions("delivery", []string{"delivery_update"})

	n := NewOrderNotifier(hub, logger)
	n.now = func() time.Time { return time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC) }

	before := orders.count()
	n.NotifyNewOrder(&event.NewOrderPayload{OrderID: 42, CustomerName: "Ada", TotalAmount: 23.5, OrderStatus: "pending", InterfaceType: "phone"})
	assert.Equal(before+1, orders.count())
	assert.Contains(orders.last(), `"type":"new_order"`)
	assert.Contains(orders.last(), `"order_id":42`)

	name := "Ada"
	n.NotifyOrderStatusChange(42, "pending", "preparing", &name)
	assert.Contains(orders.last(), `"new_status":"preparing"`)

	n.NotifyOrderCompleted(42, "Ada")
	assert.Contains(orders.last(), `"completed_at":"2024-02-02T10:00:00Z"`)

	ordersSeen := orders.count()
	deliverySeen := delivery.count()
	n.NotifyDeliveryUpdate(map[string]any{"order_id": 42, "eta_minutes": 12})
	assert.Equal(ordersSeen, orders.count())
	assert.Equal(deliverySeen+1, delivery.count())
	assert.Contains(delivery.last(), `"eta_minutes":12`)

	n.SendPerformanceMetrics(nil)
	n.NotifySessionUpdate(map[string]any{"active_sessions": 3})
	n.NotifyOrderUpdate(map[string]any{"order_id": 42})
	assert.Equal(ordersSeen, orders.count())
	assert.Equal(deliverySeen+1, delivery.count())
}
