package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/phone-mailer/internal/identity"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/util"
)

func newEmailCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "email <phone>",
		Short: "Print the synthetic email for a phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "email")
			if err != nil {
				return err
			}
			defer a.Close()

			email, err := a.bridge.GenerateEmailFromPhone(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), email)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "settings scope (default DEFAULT_SCOPE)")
	return cmd
}

func newTestConnectionCmd() *cobra.Command {
	var scope, apiKey, instanceID string
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check the messaging gateway credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "test-connection")
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.gateway.TestConnection(cmd.Context(), apiKey, instanceID, scope)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("connection test failed: %s", res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "settings scope (default DEFAULT_SCOPE)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "override the stored API key")
	cmd.Flags().StringVar(&instanceID, "instance-id", "", "override the stored instance id")
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change scoped settings",
	}
	cmd.AddCommand(newSettingsEncryptCmd())
	cmd.AddCommand(newSettingsSetCmd())
	cmd.AddCommand(newSettingsShowCmd())
	return cmd
}

func newSettingsEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a secret with SETTINGS_SECRET_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "settings")
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cipher.Passthrough() {
				return errors.New("SETTINGS_SECRET_KEY is required to encrypt values")
			}

			sealed, err := a.cipher.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting; the messaging API key is encrypted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "settings")
			if err != nil {
				return err
			}
			defer a.Close()

			if scope == "" {
				scope = a.cfg.App.DefaultScope
			}
			key, value := strings.TrimSpace(args[0]), args[1]
			switch key {
			case settings.KeyMessagingAPIKey:
				if value, err = a.cipher.Encrypt(value); err != nil {
					return err
				}
			case settings.KeyBaseURL:
				if value, err = util.ValidateHTTPURL(value); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
			}
			if err := a.store.Upsert(cmd.Context(), scope, key, value); err != nil {
				return err
			}
			a.log.Info().Str("scope", scope).Str("key", key).Msg("setting stored")
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "settings scope (default DEFAULT_SCOPE)")
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration of a scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "settings")
			if err != nil {
				return err
			}
			defer a.Close()

			if scope == "" {
				scope = a.cfg.App.DefaultScope
			}
			cfg := a.source.Load(cmd.Context(), scope)
			out := map[string]any{
				"scope":             scope,
				"config":            cfg,
				"valid":             a.source.ValidateConfig(cmd.Context(), scope),
				"example_email":     exampleEmail(cmd.Context(), a.bridge, scope),
				"credentials_ready": cfg.Credentials.Complete(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "settings scope (default DEFAULT_SCOPE)")
	return cmd
}

// exampleEmail shows which domain a scope generates addresses for.
func exampleEmail(ctx context.Context, bridge *identity.Bridge, scope string) string {
	email, err := bridge.GenerateEmailFromPhone(ctx, "15550100", scope)
	if err != nil {
		return ""
	}
	return email
}
