package common

import "time"

// OutboundMessage is a rendered notification ready for the gateway. The
// notification layer builds it after resolving credentials and rendering
// the template; adapters convert it into a provider payload.
type OutboundMessage struct {
	MessageID  string
	Kind       string
	Scope      string
	To         string
	Body       string
	APIKey     string
	InstanceID string
	CreatedAt  time.Time
	Metadata   map[string]string
}
