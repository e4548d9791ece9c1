package model

// Connection status event names.
const (
	StatusConnected           = "connected"
	EventClientConnected      = "client_connected"
	EventClientDisconnected   = "client_disconnected"
	EventSubscriptionsUpdated = "subscriptions_updated"
)

// ConnectedPayload is the welcome sent to a client right after registration.
type ConnectedPayload struct {
	Status                 string   `json:"status"`
	ClientID               string   `json:"client_id"`
	ServerTime             string   `json:"server_time"`
	AvailableSubscriptions []string `json:"available_subscriptions"`
}

// PresencePayload announces a change in the number of live clients.
type PresencePayload struct {
	Event             string `json:"event"`
	ActiveConnections int    `json:"active_connections"`
}

// SubscriptionsPayload confirms a subscription update with the list the client requested.
type SubscriptionsPayload struct {
	Event         string   `json:"event"`
	Subscriptions []string `json:"subscriptions"`
}
