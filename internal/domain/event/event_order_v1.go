package event

import (
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

// NewOrderPayload is the data of a new_order event.
type NewOrderPayload struct {
	OrderID       int64   `json:"order_id"`
	CustomerName  string  `json:"customer_name"`
	TotalAmount   float64 `json:"total_amount"`
	OrderStatus   string  `json:"order_status"`
	InterfaceType string  `json:"interface_type"`
	CreatedAt     string  `json:"created_at"`
}

// StatusChangePayload is the data of an order_status_change event.
type StatusChangePayload struct {
	OrderID      int64   `json:"order_id"`
	OldStatus    string  `json:"old_status"`
	NewStatus    string  `json:"new_status"`
	CustomerName *string `json:"customer_name"`
	UpdatedAt    string  `json:"updated_at"`
}

// CompletedPayload is the data of an order_completed event.
type CompletedPayload struct {
	OrderID      int64  `json:"order_id"`
	CustomerName string `json:"customer_name"`
	CompletedAt  string `json:"completed_at"`
}

// NewOrderMessage wraps a new order announcement.
func NewOrderMessage(p *NewOrderPayload, now time.Time) *model.OutboundMessage {
	return stamped(NewOrder, p, now)
}

// NewStatusChangeMessage wraps an order status transition.
func NewStatusChangeMessage(orderID int64, oldStatus, newStatus string, customerName *string, now time.Time) *model.OutboundMessage {
	return stamped(OrderStatusChange, &StatusChangePayload{
		OrderID:      orderID,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		CustomerName: customerName,
		UpdatedAt:    FormatTime(now),
	}, now)
}

// NewCompletedMessage wraps an order completion.
func NewCompletedMessage(orderID int64, customerName string, now time.Time) *model.OutboundMessage {
	return stamped(OrderCompleted, &CompletedPayload{
		OrderID:      orderID,
		CustomerName: customerName,
		CompletedAt:  FormatTime(now),
	}, now)
}

// NewDataMessage wraps a free-form payload (delivery, metrics, session and order updates).
func NewDataMessage(t EventType, data map[string]any, now time.Time) *model.OutboundMessage {
	if data == nil {
		data = map[string]any{}
	}
	return stamped(t, data, now)
}

func stamped(t EventType, data any, now time.Time) *model.OutboundMessage {
	msg := model.NewOutboundMessage(t.String(), data)
	msg.Timestamp = FormatTime(now)
	return msg
}
