package common

import "context"

// Adapter defines the behaviour required from gateway adapters. Adapters
// convert outbound messages into provider payloads and return a normalized
// ProviderResponse alongside an error classified with the sentinels in this
// package.
type Adapter interface {
	Send(ctx context.Context, msg *OutboundMessage) (*ProviderResponse, error)
	Verify(ctx context.Context, apiKey, instanceID string) (*ProviderResponse, error)
}
