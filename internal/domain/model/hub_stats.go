package model

// Stats is a point-in-time snapshot of the connection registry.
type Stats struct {
	ActiveConnections int                    `json:"active_connections"`
	TotalConnections  uint64                 `json:"total_connections"`
	MessagesSent      uint64                 `json:"messages_sent"`
	Clients           map[string]ClientStats `json:"clients"`
}

// ClientStats describes one live connection.
type ClientStats struct {
	ConnectedAt   string   `json:"connected_at"`
	MessageCount  uint64   `json:"message_count"`
	LastActivity  string   `json:"last_activity"`
	Subscriptions []string `json:"subscriptions"`
}
