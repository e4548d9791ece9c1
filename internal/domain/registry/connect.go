package registry

import (
	"errors"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

// ErrDisconnected must be matched (errors.Is) by transport errors that mean the peer is gone.
// Any other send error is treated as transient.
var ErrDisconnected = errors.New("transport disconnected")

// [TRANSPORT] FULL-DUPLEX TEXT CHANNEL TO ONE CLIENT
// Implementations must tolerate Send being called from several goroutines
// and Close being called more than once.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// connMeta is the bookkeeping half of a registry entry.
type connMeta struct {
	connectedAt  time.Time
	lastActivity time.Time
	messageCount uint64
	user         model.UserInfo
}

func (m *connMeta) touch(now time.Time) {
	m.messageCount++
	m.lastActivity = now
}
