package event

import "fmt"

// EventType is the closed set of dashboard event tags governing subscription filtering.
type EventType int16

const (
	// [ZERO_VALUE_GUARD] WE START FROM 1 TO DISTINGUISH FROM UNINITIALIZED DATA
	OrderUpdate EventType = iota + 1
	OrderStatusChange
	NewOrder
	OrderCompleted
	DeliveryUpdate
	SystemAlert
	PerformanceMetrics
	SessionUpdate
	ConnectionStatus
)

var eventTypeNames = map[EventType]string{
	OrderUpdate:        "order_update",
	OrderStatusChange:  "order_status_change",
	NewOrder:           "new_order",
	OrderCompleted:     "order_completed",
	DeliveryUpdate:     "delivery_update",
	SystemAlert:        "system_alert",
	PerformanceMetrics: "performance_metrics",
	SessionUpdate:      "session_update",
	ConnectionStatus:   "connection_status",
}

var eventTypesByName = func() map[string]EventType {
	res := make(map[string]EventType, len(eventTypeNames))
	for t, name := range eventTypeNames {
		res[name] = t
	}
	return res
}()

// AllEventTypes returns every known event type in declaration order.
func AllEventTypes() []EventType {
	return []EventType{
		OrderUpdate,
		OrderStatusChange,
		NewOrder,
		OrderCompleted,
		DeliveryUpdate,
		SystemAlert,
		PerformanceMetrics,
		SessionUpdate,
		ConnectionStatus,
	}
}

// AllEventTypeNames returns the wire names of every known event type.
func AllEventTypeNames() []string {
	types := AllEventTypes()
	res := make([]string, 0, len(types))
	for _, t := range types {
		res = append(res, t.String())
	}
	return res
}

// ParseEventType maps a wire name onto the enumeration.
func ParseEventType(name string) (EventType, error) {
	if t, ok := eventTypesByName[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown event type %q", name)
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int16(t))
}

// IsValid reports whether t belongs to the enumeration.
func (t EventType) IsValid() bool {
	_, ok := eventTypeNames[t]
	return ok
}
