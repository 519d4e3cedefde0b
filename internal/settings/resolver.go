package settings

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
)

// Decrypter reveals secrets stored in the settings repository.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithDefaultScope changes the fallback scope. Blank values are ignored.
func WithDefaultScope(scope string) Option {
	return func(r *Resolver) {
		if scope = strings.TrimSpace(scope); scope != "" {
			r.defaultScope = scope
		}
	}
}

// Resolver reads settings from a Repository with explicit precedence:
// the requested scope, then the default scope, then the built-in default.
// Repository errors are logged and treated as absent values.
type Resolver struct {
	repo         Repository
	decrypter    Decrypter
	logger       zerolog.Logger
	defaultScope string
}

// NewResolver constructs a Resolver. A nil decrypter leaves secrets as stored.
func NewResolver(repo Repository, decrypter Decrypter, logger zerolog.Logger, opts ...Option) *Resolver {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if decrypter == nil {
		decrypter = passthrough{}
	}
	r := &Resolver{
		repo:         repo,
		decrypter:    decrypter,
		logger:       logger,
		defaultScope: DefaultScope,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// DefaultScope returns the scope used as fallback.
func (r *Resolver) DefaultScope() string { return r.defaultScope }

func (r *Resolver) resolve(ctx context.Context, scope, key string) (string, bool) {
	scope = strings.TrimSpace(scope)
	if scope != "" && scope != r.defaultScope {
		if v, ok := r.lookup(ctx, scope, key); ok {
			return v, true
		}
	}
	return r.lookup(ctx, r.defaultScope, key)
}

func (r *Resolver) lookup(ctx context.Context, scope, key string) (string, bool) {
	v, ok, err := r.repo.Get(ctx, scope, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("scope", scope).Str("key", key).Msg("settings lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func (r *Resolver) getString(ctx context.Context, scope, key, def string) string {
	if v, ok := r.resolve(ctx, scope, key); ok {
		return v
	}
	return def
}

func (r *Resolver) getBool(ctx context.Context, scope, key string) bool {
	v, ok := r.resolve(ctx, scope, key)
	if !ok {
		return false
	}
	return parseFlag(v)
}

// IsEnabled reports whether the identity bridge is enabled for scope.
func (r *Resolver) IsEnabled(ctx context.Context, scope string) bool {
	return r.getBool(ctx, scope, KeyEnabled)
}

// IsMessagingEnabled reports whether both the module and gateway messaging
// are enabled for scope.
func (r *Resolver) IsMessagingEnabled(ctx context.Context, scope string) bool {
	return r.IsEnabled(ctx, scope) && r.getBool(ctx, scope, KeyMessagingEnabled)
}

// DomainMode returns custom only when configured as such; anything else is auto.
func (r *Resolver) DomainMode(ctx context.Context, scope string) DomainMode {
	return parseDomainMode(r.getString(ctx, scope, KeyDomainMode, ""))
}

// CustomDomain returns the configured custom domain or "".
func (r *Resolver) CustomDomain(ctx context.Context, scope string) string {
	return r.getString(ctx, scope, KeyCustomDomain, "")
}

// BaseURL returns the storefront base URL used to derive the auto domain.
func (r *Resolver) BaseURL(ctx context.Context, scope string) string {
	return r.getString(ctx, scope, KeyBaseURL, "")
}

// StoreName returns the storefront display name.
func (r *Resolver) StoreName(ctx context.Context, scope string) string {
	return r.getString(ctx, scope, KeyStoreName, "")
}

// Credentials resolves the gateway credentials. A secret that cannot be
// decrypted is logged and reported as an empty API key.
func (r *Resolver) Credentials(ctx context.Context, scope string) Credentials {
	creds := Credentials{InstanceID: r.getString(ctx, scope, KeyMessagingInstance, "")}
	raw := r.getString(ctx, scope, KeyMessagingAPIKey, "")
	if raw == "" {
		return creds
	}
	key, err := r.decrypter.Decrypt(raw)
	if err != nil {
		r.logger.Error().Err(err).Str("scope", scope).Msg("messaging api key could not be decrypted")
		return creds
	}
	creds.APIKey = strings.TrimSpace(key)
	return creds
}

// Templates returns the configured templates, or the built-in defaults
// when none are configured or the stored value is not a JSON object.
func (r *Resolver) Templates(ctx context.Context, scope string) map[string]string {
	raw, ok := r.resolve(ctx, scope, KeyMessagingTemplates)
	if !ok {
		return DefaultTemplates()
	}
	templates, err := parseTemplates(raw)
	if err != nil {
		r.logger.Warn().Err(err).Str("scope", scope).Msg("stored templates are malformed, using defaults")
		return DefaultTemplates()
	}
	return templates
}

// Template returns the template for kind with built-in fallback.
func (r *Resolver) Template(ctx context.Context, scope, kind string) string {
	if tpl, ok := r.Templates(ctx, scope)[kind]; ok {
		return tpl
	}
	return defaultTemplates[kind]
}

// ValidateConfig reports whether messaging can be attempted for scope.
func (r *Resolver) ValidateConfig(ctx context.Context, scope string) bool {
	if !r.IsMessagingEnabled(ctx, scope) {
		return false
	}
	if !r.Credentials(ctx, scope).Complete() {
		r.logger.Warn().Str("scope", scope).Msg("messaging configuration is incomplete")
		return false
	}
	return true
}

// Load resolves every setting of scope at once.
func (r *Resolver) Load(ctx context.Context, scope string) ScopedConfig {
	enabled := r.IsEnabled(ctx, scope)
	return ScopedConfig{
		Scope:            scope,
		Enabled:          enabled,
		MessagingEnabled: enabled && r.getBool(ctx, scope, KeyMessagingEnabled),
		DomainMode:       r.DomainMode(ctx, scope),
		CustomDomain:     r.CustomDomain(ctx, scope),
		BaseURL:          r.BaseURL(ctx, scope),
		StoreName:        r.StoreName(ctx, scope),
		Credentials:      r.Credentials(ctx, scope),
		Templates:        r.Templates(ctx, scope),
	}
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseDomainMode(v string) DomainMode {
	if strings.EqualFold(strings.TrimSpace(v), string(DomainCustom)) {
		return DomainCustom
	}
	return DomainAuto
}

var errTemplatesNotObject = errors.New("templates must be a JSON object")

func parseTemplates(raw string) (map[string]string, error) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, common.WrapConfig(err)
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, common.WrapConfig(errTemplatesNotObject)
	}
	out := make(map[string]string, len(obj))
	for kind, v := range obj {
		if s, ok := v.(string); ok {
			out[kind] = s
		}
	}
	return out, nil
}
