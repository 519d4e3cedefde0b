package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/phone-mailer/internal/util"
)

// Config captures all runtime configuration for phone-mailer. Settings that
// vary per scope (credentials, templates, domain mode) live in the settings
// store; this struct only describes how to reach collaborators.
type Config struct {
	App      AppConfig
	Gateway  GatewayConfig
	Settings SettingsConfig
	Kafka    KafkaConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env          string
	LogLevel     string
	HTTPAddr     string
	DefaultScope string
}

// GatewayConfig describes the outbound messaging gateway.
type GatewayConfig struct {
	Provider       string
	BaseURL        string
	Timeout        time.Duration
	BodyLimitBytes int64
}

// SettingsConfig selects and configures the scoped settings backend.
type SettingsConfig struct {
	Backend       string
	File          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SecretKey     string
	PreloadScopes []string
}

// KafkaConfig defines broker and topic information for the event worker.
type KafkaConfig struct {
	Brokers           []string
	EventsTopic       string
	StatusTopic       string
	ConsumerGroup     string
	WorkerConcurrency int
	MsgMaxBytes       int
}

// Settings backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance. Kafka settings are read
// but only checked by ValidateWorker.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)
	cfg.App.HTTPAddr = ldr.getString("HTTP_ADDR", ":8080", false)
	cfg.App.DefaultScope = ldr.getString("DEFAULT_SCOPE", "default", false)

	cfg.Gateway.Provider = strings.ToLower(ldr.getString("GATEWAY_PROVIDER", "http", false))
	cfg.Gateway.BaseURL = ldr.getString("GATEWAY_BASE_URL", "https://api.whatsapp.com/v1/", false)
	timeout := ldr.getInt("GATEWAY_TIMEOUT_SECONDS", 10, false)
	if timeout <= 0 {
		ldr.addError("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	cfg.Gateway.Timeout = time.Duration(timeout) * time.Second
	cfg.Gateway.BodyLimitBytes = int64(ldr.getInt("GATEWAY_BODY_LIMIT_BYTES", 16*1024, false))
	switch cfg.Gateway.Provider {
	case "http":
		if _, err := util.ValidateHTTPURL(cfg.Gateway.BaseURL); err != nil {
			ldr.addError(fmt.Sprintf("GATEWAY_BASE_URL: %v", err))
		}
	case "mock":
	default:
		ldr.addError(fmt.Sprintf("GATEWAY_PROVIDER %q is not supported", cfg.Gateway.Provider))
	}

	cfg.Settings.Backend = strings.ToLower(ldr.getString("SETTINGS_BACKEND", BackendFile, false))
	switch cfg.Settings.Backend {
	case BackendFile:
		cfg.Settings.File = ldr.getString("SETTINGS_FILE", "settings.yaml", false)
	case BackendPostgres:
		cfg.Settings.DatabaseURL = ldr.getString("DATABASE_URL", "", true)
	case BackendRedis:
		cfg.Settings.RedisAddr = ldr.getString("REDIS_ADDR", "", true)
		cfg.Settings.RedisPassword = ldr.getString("REDIS_PASSWORD", "", false)
		cfg.Settings.RedisDB = ldr.getInt("REDIS_DB", 0, false)
	default:
		ldr.addError(fmt.Sprintf("SETTINGS_BACKEND %q is not supported", cfg.Settings.Backend))
	}
	cfg.Settings.SecretKey = ldr.getString("SETTINGS_SECRET_KEY", "", false)
	cfg.Settings.PreloadScopes = ldr.getStringSlice("SETTINGS_PRELOAD_SCOPES", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.EventsTopic = ldr.getString("KAFKA_EVENTS_TOPIC", "phonemailer.events", false)
	cfg.Kafka.StatusTopic = ldr.getString("KAFKA_STATUS_TOPIC", "phonemailer.status", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("KAFKA_CONSUMER_GROUP", "phonemailer-worker", false)
	cfg.Kafka.WorkerConcurrency = ldr.getInt("WORKER_CONCURRENCY", 10, false)
	cfg.Kafka.MsgMaxBytes = ldr.getInt("KAFKA_MSG_MAX_BYTES", 65536, false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateWorker checks the settings only the event worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required")
	}
	if strings.TrimSpace(c.Kafka.EventsTopic) == "" {
		errs = append(errs, "KAFKA_EVENTS_TOPIC is required")
	}
	if strings.TrimSpace(c.Kafka.StatusTopic) == "" {
		errs = append(errs, "KAFKA_STATUS_TOPIC is required")
	}
	if strings.TrimSpace(c.Kafka.ConsumerGroup) == "" {
		errs = append(errs, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.WorkerConcurrency <= 0 {
		errs = append(errs, "WORKER_CONCURRENCY must be positive")
	}
	if c.Kafka.MsgMaxBytes < 0 {
		errs = append(errs, "KAFKA_MSG_MAX_BYTES cannot be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("worker config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
