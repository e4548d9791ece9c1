package model

import "encoding/json"

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// SystemAlertPayload is the data of a system_alert event.
type SystemAlertPayload struct {
	AlertType  string `json:"alert_type"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Timestamp  string `json:"timestamp,omitempty"`
	FromClient string `json:"from_client,omitempty"`
}

// PongPayload answers a client ping. Timestamp echoes the client value verbatim.
type PongPayload struct {
	Timestamp  json.RawMessage `json:"timestamp"`
	ServerTime string          `json:"server_time"`
}
