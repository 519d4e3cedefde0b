package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	waadapter "github.com/example/phone-mailer/internal/adapters/whatsapp"
	"github.com/example/phone-mailer/internal/config"
	"github.com/example/phone-mailer/internal/hooks"
	"github.com/example/phone-mailer/internal/identity"
	"github.com/example/phone-mailer/internal/logger"
	"github.com/example/phone-mailer/internal/notify"
	"github.com/example/phone-mailer/internal/providers/factory"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/settings/repository"
)

// app holds the wired core components shared by every command.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   repository.Store
	cipher  *settings.Cipher
	source  settings.Source
	bridge  *identity.Bridge
	gateway *notify.Gateway
	hooks   *hooks.Hooks

	closeStore func()
}

func newApp(ctx context.Context, command string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	log := baseLogger.With().Str("command", command).Logger()

	store, closeStore, err := repository.Open(ctx, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("settings store: %w", err)
	}

	cipher, err := settings.NewCipher(cfg.Settings.SecretKey)
	if err != nil {
		closeStore()
		return nil, err
	}
	if cipher.Passthrough() {
		log.Warn().Msg("SETTINGS_SECRET_KEY not set; secrets are read as stored")
	}

	resolver := settings.NewResolver(store, cipher, logger.Component(log, "settings"),
		settings.WithDefaultScope(cfg.App.DefaultScope))
	var source settings.Source = resolver
	if len(cfg.Settings.PreloadScopes) > 0 {
		source = settings.NewSnapshot(ctx, resolver, logger.Component(log, "settings-snapshot"), cfg.Settings.PreloadScopes...)
	}

	providerLogger := log.With().
		Str("component", "gateway-provider").
		Str("backend", cfg.Gateway.Provider).
		Logger()
	provider, err := factory.Gateway(cfg.Gateway, providerLogger)
	if err != nil {
		closeStore()
		return nil, err
	}

	adapter, err := waadapter.NewAdapter(provider, logger.Component(log, "gateway-adapter"))
	if err != nil {
		closeStore()
		return nil, err
	}

	gateway, err := notify.NewGateway(source, adapter, logger.Component(log, "notify"))
	if err != nil {
		closeStore()
		return nil, err
	}

	bridge, err := identity.NewBridge(source, logger.Component(log, "identity"),
		identity.WithDefaultScope(cfg.App.DefaultScope))
	if err != nil {
		closeStore()
		return nil, err
	}

	h, err := hooks.New(source, bridge, gateway, logger.Component(log, "hooks"))
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		store:      store,
		cipher:     cipher,
		source:     source,
		bridge:     bridge,
		gateway:    gateway,
		hooks:      h,
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
}
