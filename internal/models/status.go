package models

import "time"

// Status event constants.
const (
	StatusEventSent             = "sent"
	StatusEventFailed           = "failed"
	StatusEventSkipped          = "skipped"
	StatusEventEmailRegenerated = "email_regenerated"
	StatusEventInvalid          = "invalid"
)

// StatusEvent reports the outcome of handling one business event.
type StatusEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Scope     string    `json:"scope,omitempty"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
