package registry

import "github.com/pizzeria/dashboard-delivery-service/internal/domain/model"

// PresenceObserver is told about registry membership changes after they happened.
// Calls are made outside the registry lock from the goroutine that caused the change,
// so implementations must not block.
type PresenceObserver interface {
	ClientConnected(clientID string, user model.UserInfo, active int)
	ClientDisconnected(clientID string, active int)
}

type nopObserver struct{}

func (nopObserver) ClientConnected(string, model.UserInfo, int) {}
func (nopObserver) ClientDisconnected(string, int)              {}

// NopObserver returns an observer that ignores every notification.
func NopObserver() PresenceObserver { return nopObserver{} }
