package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/phone-mailer/internal/config"
	waprovider "github.com/example/phone-mailer/internal/providers/whatsapp"
)

// Gateway constructs the configured messaging gateway provider. Supports the
// http and mock backends.
func Gateway(cfg config.GatewayConfig, logger zerolog.Logger) (waprovider.Provider, error) {
	backend := normalize(cfg.Provider, "http")
	switch backend {
	case "http":
		provider := waprovider.NewCloudProvider(cfg, logger)
		logger.Info().
			Str("backend", "http").
			Str("base_url", cfg.BaseURL).
			Msg("gateway provider initialised")
		return provider, nil
	case "mock":
		provider := waprovider.NewMockProvider(logger)
		logger.Info().
			Str("backend", "mock").
			Msg("gateway provider initialised")
		return provider, nil
	default:
		return nil, fmt.Errorf("factory: unsupported gateway provider backend %q", cfg.Provider)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
