package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/phone-mailer/internal/notify"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/settings/repository"
	"github.com/example/phone-mailer/internal/util"
)

const testSecret = "test-secret"

func setupEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`scopes:
  default:
    enabled: true
    messaging.enabled: true
    web.base_url: https://www.example.com/
  eu:
    domain.mode: custom
    domain.custom: eu.example.net
`), 0o600))

	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GATEWAY_PROVIDER", "mock")
	t.Setenv("SETTINGS_BACKEND", "file")
	t.Setenv("SETTINGS_FILE", path)
	t.Setenv("SETTINGS_SECRET_KEY", testSecret)
	t.Setenv("SETTINGS_PRELOAD_SCOPES", "")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestEmailCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "email", "+1 (555) 010-0")
	require.NoError(t, err)
	require.Equal(t, "15550100@example.com", out)

	out, err = run(t, "email", "--scope", "eu", "555 0100")
	require.NoError(t, err)
	require.Equal(t, "5550100@eu.example.net", out)

	_, err = run(t, "email", "n/a")
	require.Error(t, err)
}

func TestEmailCommandWithPreloadedScopes(t *testing.T) {
	setupEnv(t)
	t.Setenv("SETTINGS_PRELOAD_SCOPES", "default,eu")

	out, err := run(t, "email", "--scope", "eu", "555 0100")
	require.NoError(t, err)
	require.Equal(t, "5550100@eu.example.net", out)
}

func TestSettingsSetEncryptsAPIKey(t *testing.T) {
	path := setupEnv(t)

	_, err := run(t, "settings", "set", settings.KeyMessagingAPIKey, "plain-key")
	require.NoError(t, err)
	_, err = run(t, "settings", "set", "--scope", "eu", settings.KeyBaseURL, "https://shop.example.eu")
	require.NoError(t, err)

	store, err := repository.OpenFile(path)
	require.NoError(t, err)
	stored, ok, err := store.Get(context.Background(), settings.DefaultScope, settings.KeyMessagingAPIKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, "plain-key", stored)

	cipher, err := settings.NewCipher(testSecret)
	require.NoError(t, err)
	plain, err := cipher.Decrypt(stored)
	require.NoError(t, err)
	require.Equal(t, "plain-key", plain)

	baseURL, ok, err := store.Get(context.Background(), "eu", settings.KeyBaseURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://shop.example.eu", baseURL)
}

func TestSettingsSetRejectsInvalidBaseURL(t *testing.T) {
	path := setupEnv(t)

	_, err := run(t, "settings", "set", "--scope", "eu", settings.KeyBaseURL, "shop.example.eu")
	require.ErrorIs(t, err, util.ErrInvalidURL)

	store, err := repository.OpenFile(path)
	require.NoError(t, err)
	_, ok, err := store.Get(context.Background(), "eu", settings.KeyBaseURL)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSettingsEncrypt(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "settings", "encrypt", "hunter2")
	require.NoError(t, err)

	cipher, err := settings.NewCipher(testSecret)
	require.NoError(t, err)
	plain, err := cipher.Decrypt(out)
	require.NoError(t, err)
	require.Equal(t, "hunter2", plain)

	t.Setenv("SETTINGS_SECRET_KEY", "")
	_, err = run(t, "settings", "encrypt", "hunter2")
	require.Error(t, err)
}

func TestSettingsShow(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "settings", "show", "--scope", "eu")
	require.NoError(t, err)

	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Equal(t, "eu", shown["scope"])
	require.Equal(t, "15550100@eu.example.net", shown["example_email"])
	require.Equal(t, false, shown["credentials_ready"])
}

func TestTestConnectionCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "test-connection", "--api-key", "key", "--instance-id", "inst")
	require.NoError(t, err)
	var res notify.ConnectionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.Equal(t, "Connection successful. Account is active.", res.Message)

	out, err = run(t, "test-connection")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, notify.ConnectionResult{Success: false, Message: "credentials missing"}, res)
}

func TestWorkerCommandRequiresBrokers(t *testing.T) {
	setupEnv(t)
	t.Setenv("KAFKA_BROKERS", "")

	_, err := run(t, "worker")
	require.ErrorContains(t, err, "KAFKA_BROKERS is required")
}
