package model

import (
	"encoding/json"
	"time"
)

// Push channel message kinds.
const (
	MessageEvent    = "event"
	MessageActivity = "activity"
	MessageError    = "error"
	MessageReady    = "ready"
	MessagePing     = "ping"
	MessagePong     = "pong"
)

// PushMessage is the envelope exchanged on the live push channel.
// Data carries an Activity for event messages; Message carries the text
// of error messages.
type PushMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEventMessage wraps a for delivery on the push channel.
func NewEventMessage(a Activity) (PushMessage, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return PushMessage{}, err
	}
	return PushMessage{Type: MessageEvent, Data: data, Timestamp: time.Now().UTC()}, nil
}

// ActivityList is the body of the activities list endpoint.
type ActivityList struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// OCRErrorList is the body of the OCR triage endpoint.
type OCRErrorList struct {
	Errors []OCRError `json:"errors"`
	Stats  OCRStats   `json:"stats"`
}
