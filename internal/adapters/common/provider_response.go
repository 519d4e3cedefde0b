package common

import "unicode/utf8"

// DefaultRawBodyLimit defines the maximum number of characters retained from a
// gateway response body when attaching it to a ProviderResponse.
const DefaultRawBodyLimit = 1024

// Provider response statuses.
const (
	StatusSent        = "sent"
	StatusFailed      = "failed"
	StatusActive      = "active"
	StatusRejected    = "rejected"
	StatusUnparseable = "unparseable"
)

// ProviderResponse captures normalized gateway information exchanged between
// adapters and the notification layer.
type ProviderResponse struct {
	Status     string            `json:"status"`
	ProviderID string            `json:"provider_id,omitempty"`
	Code       *int              `json:"code,omitempty"`
	Message    string            `json:"message,omitempty"`
	Raw        string            `json:"raw,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// HTTPStatus returns the recorded status code or zero.
func (r *ProviderResponse) HTTPStatus() int {
	if r == nil || r.Code == nil {
		return 0
	}
	return *r.Code
}

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
