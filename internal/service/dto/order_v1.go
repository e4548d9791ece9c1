package dto

import (
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
)

// [RABBIT_V1] PAYLOADS PUBLISHED BY THE ORDERING BACKEND ON THE ORDERS EXCHANGE

// OrderCreatedV1 is published on order.created.
type OrderCreatedV1 struct {
	ID            int64   `json:"id"`
	CustomerName  string  `json:"customer_name"`
	TotalAmount   float64 `json:"total_amount"`
	OrderStatus   string  `json:"order_status"`
	InterfaceType string  `json:"interface_type"`
	CreatedAt     string  `json:"created_at"`
}

// ToPayload maps the DTO onto the new_order event data. A missing or malformed
// created_at falls back to the supplied time.
func (d *OrderCreatedV1) ToPayload(fallback time.Time) *event.NewOrderPayload {
	createdAt := d.CreatedAt
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		createdAt = event.FormatTime(fallback)
	}
	return &event.NewOrderPayload{
		OrderID:       d.ID,
		CustomerName:  d.CustomerName,
		TotalAmount:   d.TotalAmount,
		OrderStatus:   d.OrderStatus,
		InterfaceType: d.InterfaceType,
		CreatedAt:     createdAt,
	}
}

// OrderStatusChangedV1 is published on order.status_changed.
type OrderStatusChangedV1 struct {
	OrderID      int64   `json:"order_id"`
	OldStatus    string  `json:"old_status"`
	NewStatus    string  `json:"new_status"`
	CustomerName *string `json:"customer_name"`
}

// OrderCompletedV1 is published on order.completed.
type OrderCompletedV1 struct {
	ID           int64  `json:"id"`
	CustomerName string `json:"customer_name"`
}

// DataV1 carries free-form payloads (delivery.updated, metrics.performance, session.updated, order.updated).
type DataV1 map[string]any
