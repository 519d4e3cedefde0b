// Package httpapi exposes identity bridging and the messaging connection
// test over HTTP, next to health and Prometheus endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/phone-mailer/internal/notify"
)

// Identity is the identity bridge surface served over HTTP.
type Identity interface {
	GenerateEmailFromPhone(ctx context.Context, phone, scope string) (string, error)
	RegenerateIfNeeded(ctx context.Context, current, newPhone, scope string) (string, error)
}

// LoginResolver maps login identifiers to account emails.
type LoginResolver interface {
	ResolveLogin(ctx context.Context, username string) string
}

// ConnectionTester probes the messaging gateway.
type ConnectionTester interface {
	TestConnection(ctx context.Context, apiKey, instanceID, scope string) notify.ConnectionResult
}

// Dependencies collects the collaborators behind the routes.
type Dependencies struct {
	Identity   Identity
	Logins     LoginResolver
	Connection ConnectionTester
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Server owns the echo instance.
type Server struct {
	echo   *echo.Echo
	deps   Dependencies
	logger zerolog.Logger
}

// New builds the server and registers every route.
func New(deps Dependencies) (*Server, error) {
	if deps.Identity == nil {
		return nil, errors.New("httpapi: identity dependency is required")
	}
	if deps.Logins == nil {
		return nil, errors.New("httpapi: login resolver dependency is required")
	}
	if deps.Connection == nil {
		return nil, errors.New("httpapi: connection tester dependency is required")
	}
	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			evt := logger.Info()
			if v.Error != nil {
				evt = logger.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	s := &Server{echo: e, deps: deps, logger: logger}
	s.Register(e)
	return s, nil
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/v1/identity")
	g.POST("/email", s.generateEmail)
	g.POST("/login", s.resolveLogin)
	g.POST("/regenerate", s.regenerate)

	admin := e.Group("/v1/admin/messaging")
	admin.POST("/test-connection", s.testConnection)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.deps.Now().UTC().Format(time.RFC3339),
	})
}
