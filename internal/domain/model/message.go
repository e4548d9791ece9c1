package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Reply types that are not part of the subscribable event enumeration.
const (
	TypeError = "error"
	TypePong  = "pong"
	TypeStats = "stats"
)

// ID prefixes used when stamping outbound envelopes.
const (
	PersonalIDPrefix  = "msg"
	BroadcastIDPrefix = "broadcast"
)

// [OUTBOUND] ENVELOPE WRITTEN TO EVERY DASHBOARD CLIENT
//
// Type carries either an event.EventType name or one of the reply types above.
// ID and Timestamp are filled at send time unless the caller set them.
type OutboundMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// NewOutboundMessage builds an unstamped envelope.
func NewOutboundMessage(msgType string, data any) *OutboundMessage {
	return &OutboundMessage{Type: msgType, Data: data}
}

// Stamped returns a copy carrying an id derived from now and a timestamp.
// Values already set by the caller win.
func (m *OutboundMessage) Stamped(prefix string, now time.Time) *OutboundMessage {
	res := *m
	if res.ID == "" {
		res.ID = prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if res.Timestamp == "" {
		res.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}
	if res.Data == nil {
		res.Data = map[string]any{}
	}
	return &res
}

// [INBOUND] CONTROL MESSAGE RECEIVED FROM A CLIENT
//
// RawType, Data and Timestamp are kept raw so that replies can echo them verbatim.
// Type is set only when RawType is a JSON string.
type InboundMessage struct {
	Type      string          `json:"-"`
	RawType   json.RawMessage `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}
