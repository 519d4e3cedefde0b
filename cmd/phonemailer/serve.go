package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/phone-mailer/internal/logger"
	"github.com/example/phone-mailer/internal/transport/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the identity and admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, "serve")
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.App.HTTPAddr
			}

			srv, err := httpapi.New(httpapi.Dependencies{
				Identity:   a.bridge,
				Logins:     a.hooks,
				Connection: a.gateway,
				Logger:     logger.Component(a.log, "http"),
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()

			select {
			case <-ctx.Done():
				a.log.Info().Msg("shutdown signal received")
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Msg("http shutdown error")
			}
			a.log.Info().Msg("http server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}
