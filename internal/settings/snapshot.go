package settings

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"
)

// Snapshot serves scopes resolved once at construction. The map is never
// written after NewSnapshot returns, so concurrent readers need no locking.
// Scopes that were not preloaded are read from the source on every call.
type Snapshot struct {
	source Source
	logger zerolog.Logger
	scopes map[string]ScopedConfig
}

// NewSnapshot resolves each scope from source.
func NewSnapshot(ctx context.Context, source Source, logger zerolog.Logger, scopes ...string) *Snapshot {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	s := &Snapshot{
		source: source,
		logger: logger,
		scopes: make(map[string]ScopedConfig, len(scopes)),
	}
	for _, scope := range scopes {
		if _, seen := s.scopes[scope]; seen {
			continue
		}
		s.scopes[scope] = source.Load(ctx, scope)
	}
	logger.Debug().Int("scopes", len(s.scopes)).Msg("settings snapshot loaded")
	return s
}

// Scopes returns the preloaded scope names.
func (s *Snapshot) Scopes() []string {
	out := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, scope)
	}
	return out
}

func (s *Snapshot) get(scope string) (ScopedConfig, bool) {
	cfg, ok := s.scopes[scope]
	return cfg, ok
}

func (s *Snapshot) IsEnabled(ctx context.Context, scope string) bool {
	if cfg, ok := s.get(scope); ok {
		return cfg.Enabled
	}
	return s.source.IsEnabled(ctx, scope)
}

func (s *Snapshot) IsMessagingEnabled(ctx context.Context, scope string) bool {
	if cfg, ok := s.get(scope); ok {
		return cfg.MessagingEnabled
	}
	return s.source.IsMessagingEnabled(ctx, scope)
}

func (s *Snapshot) DomainMode(ctx context.Context, scope string) DomainMode {
	if cfg, ok := s.get(scope); ok {
		return cfg.DomainMode
	}
	return s.source.DomainMode(ctx, scope)
}

func (s *Snapshot) CustomDomain(ctx context.Context, scope string) string {
	if cfg, ok := s.get(scope); ok {
		return cfg.CustomDomain
	}
	return s.source.CustomDomain(ctx, scope)
}

func (s *Snapshot) BaseURL(ctx context.Context, scope string) string {
	if cfg, ok := s.get(scope); ok {
		return cfg.BaseURL
	}
	return s.source.BaseURL(ctx, scope)
}

func (s *Snapshot) StoreName(ctx context.Context, scope string) string {
	if cfg, ok := s.get(scope); ok {
		return cfg.StoreName
	}
	return s.source.StoreName(ctx, scope)
}

func (s *Snapshot) Credentials(ctx context.Context, scope string) Credentials {
	if cfg, ok := s.get(scope); ok {
		return cfg.Credentials
	}
	return s.source.Credentials(ctx, scope)
}

// Templates returns a copy so callers cannot mutate the snapshot.
func (s *Snapshot) Templates(ctx context.Context, scope string) map[string]string {
	if cfg, ok := s.get(scope); ok {
		out := make(map[string]string, len(cfg.Templates))
		for k, v := range cfg.Templates {
			out[k] = v
		}
		return out
	}
	return s.source.Templates(ctx, scope)
}

func (s *Snapshot) Template(ctx context.Context, scope, kind string) string {
	if cfg, ok := s.get(scope); ok {
		return cfg.Template(kind)
	}
	return s.source.Template(ctx, scope, kind)
}

func (s *Snapshot) ValidateConfig(ctx context.Context, scope string) bool {
	cfg, ok := s.get(scope)
	if !ok {
		return s.source.ValidateConfig(ctx, scope)
	}
	if !cfg.MessagingEnabled {
		return false
	}
	if !cfg.Credentials.Complete() {
		s.logger.Warn().Str("scope", scope).Msg("messaging configuration is incomplete")
		return false
	}
	return true
}

func (s *Snapshot) Load(ctx context.Context, scope string) ScopedConfig {
	if cfg, ok := s.get(scope); ok {
		cfg.Templates = s.Templates(ctx, scope)
		return cfg
	}
	return s.source.Load(ctx, scope)
}
