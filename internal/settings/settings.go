// Package settings resolves per-scope configuration for identity bridging
// and gateway messaging. A scope is a store or website identifier; values
// missing from a scope fall back to the default scope and then to built-in
// defaults.
package settings

import "context"

// DefaultScope is the scope consulted when a scope has no value of its own.
const DefaultScope = "default"

// Settings keys.
const (
	KeyEnabled            = "enabled"
	KeyMessagingEnabled   = "messaging.enabled"
	KeyDomainMode         = "domain.mode"
	KeyCustomDomain       = "domain.custom"
	KeyMessagingAPIKey    = "messaging.apiKey"
	KeyMessagingInstance  = "messaging.instanceId"
	KeyMessagingTemplates = "messaging.templates"
	KeyBaseURL            = "web.base_url"
	KeyStoreName          = "store.name"
)

// Template kinds.
const (
	TemplateOrderConfirmation    = "order_confirmation"
	TemplateShippingConfirmation = "shipping_confirmation"
	TemplateOrderDelivered       = "order_delivered"
	TemplateWelcome              = "welcome"
	TemplateInvoiceConfirmation  = "invoice_confirmation"
)

// DomainMode selects how the synthetic email domain is derived.
type DomainMode string

const (
	DomainAuto   DomainMode = "auto"
	DomainCustom DomainMode = "custom"
)

// Credentials authenticate against the messaging gateway.
type Credentials struct {
	APIKey     string `json:"-"`
	InstanceID string `json:"instance_id"`
}

// Complete reports whether both credentials are present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.InstanceID != ""
}

// ScopedConfig is the fully resolved configuration of one scope. It is a
// value and is never mutated after Load returns it.
type ScopedConfig struct {
	Scope            string            `json:"scope"`
	Enabled          bool              `json:"enabled"`
	MessagingEnabled bool              `json:"messaging_enabled"`
	DomainMode       DomainMode        `json:"domain_mode"`
	CustomDomain     string            `json:"custom_domain"`
	BaseURL          string            `json:"base_url"`
	StoreName        string            `json:"store_name"`
	Credentials      Credentials       `json:"credentials"`
	Templates        map[string]string `json:"templates"`
}

// Template returns the configured template for kind, falling back to the
// built-in default and then to "".
func (c ScopedConfig) Template(kind string) string {
	if tpl, ok := c.Templates[kind]; ok {
		return tpl
	}
	return defaultTemplates[kind]
}

// Repository abstracts storage of raw scoped settings.
type Repository interface {
	// Get returns (value, found, err) for an exact scope and key. It does
	// not fall back to other scopes.
	Get(ctx context.Context, scope, key string) (string, bool, error)
	// Upsert stores a value for a scope and key.
	Upsert(ctx context.Context, scope, key, value string) error
}

// Source is the read side shared by Resolver and Snapshot.
type Source interface {
	IsEnabled(ctx context.Context, scope string) bool
	IsMessagingEnabled(ctx context.Context, scope string) bool
	DomainMode(ctx context.Context, scope string) DomainMode
	CustomDomain(ctx context.Context, scope string) string
	BaseURL(ctx context.Context, scope string) string
	StoreName(ctx context.Context, scope string) string
	Credentials(ctx context.Context, scope string) Credentials
	Templates(ctx context.Context, scope string) map[string]string
	Template(ctx context.Context, scope, kind string) string
	ValidateConfig(ctx context.Context, scope string) bool
	Load(ctx context.Context, scope string) ScopedConfig
}

var defaultTemplates = map[string]string{
	TemplateOrderConfirmation:    "Thank you for your order #{{order_id}}. Your total is {{total}}. We will process your order shortly.",
	TemplateShippingConfirmation: "Good news! Your order #{{order_id}} has been shipped. Track your package with number {{tracking_number}}.",
	TemplateOrderDelivered:       "Your order #{{order_id}} has been delivered. Thank you for shopping with {{store_name}}!",
	TemplateWelcome:              "Welcome to {{store_name}}, {{customer_name}}! Thank you for registering.",
	TemplateInvoiceConfirmation:  "Your invoice #{{invoice_id}} for order #{{order_id}} has been created. Total amount: {{total}}.",
}

// DefaultTemplates returns a copy of the built-in templates.
func DefaultTemplates() map[string]string {
	out := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		out[k] = v
	}
	return out
}
