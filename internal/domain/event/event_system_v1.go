package event

import (
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

// FormatTime renders timestamps the way every envelope on the wire carries them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewWelcomeMessage is the first message a freshly registered client receives.
func NewWelcomeMessage(clientID string, now time.Time) *model.OutboundMessage {
	return model.NewOutboundMessage(ConnectionStatus.String(), &model.ConnectedPayload{
		Status:                 model.StatusConnected,
		ClientID:               clientID,
		ServerTime:             FormatTime(now),
		AvailableSubscriptions: AllEventTypeNames(),
	})
}

// NewPresenceMessage announces a connect or disconnect to the other clients.
func NewPresenceMessage(ev string, active int) *model.OutboundMessage {
	return model.NewOutboundMessage(ConnectionStatus.String(), &model.PresencePayload{
		Event:             ev,
		ActiveConnections: active,
	})
}

// NewSubscriptionsUpdatedMessage confirms a subscription change with the raw requested list.
func NewSubscriptionsUpdatedMessage(requested []string) *model.OutboundMessage {
	if requested == nil {
		requested = []string{}
	}
	return model.NewOutboundMessage(ConnectionStatus.String(), &model.SubscriptionsPayload{
		Event:         model.EventSubscriptionsUpdated,
		Subscriptions: requested,
	})
}

// NewSystemAlertMessage builds a system_alert envelope. An empty severity means info.
func NewSystemAlertMessage(alertType, message, severity string, now time.Time) *model.OutboundMessage {
	if severity == "" {
		severity = model.SeverityInfo
	}
	return model.NewOutboundMessage(SystemAlert.String(), &model.SystemAlertPayload{
		AlertType: alertType,
		Message:   message,
		Severity:  severity,
		Timestamp: FormatTime(now),
	})
}
