package wsmarshaller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

var (
	// ErrInvalidJSON marks frames that fail to parse as JSON.
	ErrInvalidJSON = errors.New("invalid JSON format")
	// ErrNotObject marks well-formed JSON frames that are not an object.
	ErrNotObject = errors.New("message is not a JSON object")
)

// SubscribeData is the data of a "subscribe" control message.
type SubscribeData struct {
	Subscriptions []string `json:"subscriptions"`
}

// UnmarshallInbound decodes one client frame.
// A "type" of any JSON kind is accepted; only a string one is exposed as Type.
func UnmarshallInbound(data []byte) (*model.InboundMessage, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	if data[0] != '{' {
		return nil, ErrNotObject
	}
	msg := &model.InboundMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if isString(msg.RawType) {
		if err := json.Unmarshal(msg.RawType, &msg.Type); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	}
	return msg, nil
}

// UnmarshallSubscriptions extracts the requested subscription list.
// Missing data or a missing list yields an empty request.
func UnmarshallSubscriptions(raw json.RawMessage) ([]string, error) {
	if isAbsent(raw) {
		return []string{}, nil
	}
	var req SubscribeData
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("subscribe data: %w", err)
	}
	if req.Subscriptions == nil {
		return []string{}, nil
	}
	return req.Subscriptions, nil
}

func isString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// [REPLIES]

func NewPongMessage(in *model.InboundMessage, now time.Time) *model.OutboundMessage {
	ts := in.Timestamp
	if isAbsent(ts) {
		ts = json.RawMessage("null")
	}
	return model.NewOutboundMessage(model.TypePong, &model.PongPayload{
		Timestamp:  ts,
		ServerTime: event.FormatTime(now),
	})
}

func NewStatsMessage(stats model.Stats) *model.OutboundMessage {
	return model.NewOutboundMessage(model.TypeStats, stats)
}

func NewInvalidJSONMessage() *model.OutboundMessage {
	return model.NewErrorMessage(model.CodeInvalidJSON, "Invalid JSON format")
}

func NewProcessingErrorMessage() *model.OutboundMessage {
	return model.NewErrorMessage(model.CodeProcessingError, "Message processing error")
}

func NewPermissionDeniedMessage() *model.OutboundMessage {
	return model.NewErrorMessage(model.CodePermissionDenied, "Insufficient permissions for broadcast")
}

// NewUnknownTypeMessage echoes the received "type" value, whatever its JSON kind.
func NewUnknownTypeMessage(in *model.InboundMessage) *model.OutboundMessage {
	label, echo := in.Type, in.RawType
	switch {
	case len(echo) == 0 && in.Type != "":
		echo, _ = json.Marshal(in.Type)
	case len(echo) > 0 && !isString(echo):
		label = string(echo)
	}
	return model.NewOutboundMessage(model.TypeError, &model.ErrorPayload{
		Message:     "Unknown message type: " + label,
		Code:        model.CodeUnknownMessageType,
		MessageType: echo,
	})
}

// NewTestAlertMessage is the system_alert an admin triggers with broadcast_test.
func NewTestAlertMessage(fromClient string, now time.Time) *model.OutboundMessage {
	return model.NewOutboundMessage(event.SystemAlert.String(), &model.SystemAlertPayload{
		AlertType:  "test",
		Message:    "Test broadcast message",
		Severity:   model.SeverityInfo,
		Timestamp:  event.FormatTime(now),
		FromClient: fromClient,
	})
}
