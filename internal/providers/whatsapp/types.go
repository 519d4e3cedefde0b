package whatsapp

import (
	"context"
	"time"
)

// Credentials authenticate a request against the messaging gateway.
type Credentials struct {
	APIKey     string
	InstanceID string
}

// Empty reports whether either credential is blank.
func (c Credentials) Empty() bool {
	return c.APIKey == "" || c.InstanceID == ""
}

// Payload encapsulates a text message to be sent via a provider.
type Payload struct {
	MessageID   string
	To          string
	Body        string
	Credentials Credentials
	Meta        map[string]string
}

// RawResponse captures the low-level provider response for a message send.
type RawResponse struct {
	ID           string
	Code         int
	Status       string
	Body         string
	ErrorMessage string
	Timestamp    time.Time
}

// AccountResponse captures the provider response for an account lookup.
type AccountResponse struct {
	Code         int
	Body         string
	Active       bool
	Parsed       bool
	ErrorMessage string
	Timestamp    time.Time
}

// Provider represents an outbound messaging gateway.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
	Account(ctx context.Context, creds Credentials) (*AccountResponse, error)
}
