package model

import "encoding/json"

// Error codes reported to clients in "error" replies.
const (
	CodeInvalidJSON        = "INVALID_JSON"
	CodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeProcessingError    = "PROCESSING_ERROR"
)

// ErrorPayload is the data of an "error" reply.
type ErrorPayload struct {
	Message     string          `json:"message"`
	Code        string          `json:"code"`
	MessageType json.RawMessage `json:"message_type,omitempty"`
}

// NewErrorMessage builds an "error" reply envelope.
func NewErrorMessage(code, message string) *OutboundMessage {
	return NewOutboundMessage(TypeError, &ErrorPayload{Message: message, Code: code})
}
