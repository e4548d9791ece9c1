package registry

import (
	"log/slog"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
)

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithLogger sets the structured logger used for registry events.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock replaces time.Now. Used for stamping ids, timestamps and activity.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithPresenceObserver registers a listener for connect/disconnect notifications.
func WithPresenceObserver(o PresenceObserver) Option {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithFanoutLimit caps the number of concurrent transport writes of one broadcast.
func WithFanoutLimit(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.fanoutLimit = n
		}
	}
}

// BroadcastOption narrows the recipients of a single broadcast.
type BroadcastOption func(*broadcastConfig)

type broadcastConfig struct {
	eventType event.EventType
	typed     bool
	exclude   map[string]struct{}
}

// WithEventType sets the event type used for subscription filtering instead of
// resolving it from the message type.
func WithEventType(t event.EventType) BroadcastOption {
	return func(c *broadcastConfig) {
		if t.IsValid() {
			c.eventType = t
			c.typed = true
		}
	}
}

// Excluding skips the given client ids.
func Excluding(ids ...string) BroadcastOption {
	return func(c *broadcastConfig) {
		if c.exclude == nil {
			c.exclude = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			c.exclude[id] = struct{}{}
		}
	}
}

func (c *broadcastConfig) excluded(id string) bool {
	_, ok := c.exclude[id]
	return ok
}
