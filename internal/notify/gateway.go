// Package notify renders templated notifications and dispatches them to the
// messaging gateway. Every gateway-side failure is logged and reported as an
// Attempt or ConnectionResult; nothing here returns an error to the caller.
package notify

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
	"github.com/example/phone-mailer/internal/metrics"
	"github.com/example/phone-mailer/internal/models"
	"github.com/example/phone-mailer/internal/settings"
	"github.com/example/phone-mailer/internal/util"
)

// Outcome is the terminal state of one dispatch.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Reasons reported on attempts that never reached the gateway.
const (
	ReasonMessagingDisabled  = "messaging disabled"
	ReasonNoPhone            = "no phone number"
	ReasonCredentialsMissing = "credentials missing"
	ReasonNotComplete        = "status is not complete"
	ReasonNoComment          = "status change has no comment"
)

// KindCustom labels messages sent through SendMessage.
const KindCustom = "custom"

var (
	errNoPhone            = errors.New(ReasonNoPhone)
	errCredentialsMissing = errors.New(ReasonCredentialsMissing)
)

// Attempt records one dispatch. It is never persisted here.
type Attempt struct {
	Outcome   Outcome
	MessageID string
	Reason    string
	Err       error
}

// Sent reports whether the gateway accepted the message.
func (a Attempt) Sent() bool { return a.Outcome == OutcomeSent }

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Request describes one templated message.
type Request struct {
	Kind     string
	Phone    string
	Template string
	Params   map[string]any
	Scope    string
	Metadata map[string]string
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithClock swaps the clock used for message timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithIDGenerator overrides the message id generator.
func WithIDGenerator(fn func() string) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// Gateway sends notifications for a scope using scoped settings.
type Gateway struct {
	settings settings.Source
	adapter  common.Adapter
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// NewGateway constructs a Gateway.
func NewGateway(src settings.Source, adapter common.Adapter, logger zerolog.Logger, opts ...Option) (*Gateway, error) {
	if src == nil {
		return nil, errors.New("notify: settings dependency is required")
	}
	if adapter == nil {
		return nil, errors.New("notify: adapter dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	g := &Gateway{
		settings: src,
		adapter:  adapter,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// SendMessage renders template with params and sends it to phone. It
// reports whether the gateway accepted the message.
func (g *Gateway) SendMessage(ctx context.Context, phone, template string, params map[string]any, scope string) bool {
	return g.Dispatch(ctx, Request{
		Kind:     KindCustom,
		Phone:    phone,
		Template: template,
		Params:   params,
		Scope:    scope,
	}).Sent()
}

// Dispatch performs a single attempt for req.
func (g *Gateway) Dispatch(ctx context.Context, req Request) Attempt {
	log := g.logger.With().Str("scope", req.Scope).Str("kind", req.Kind).Logger()

	if !g.settings.IsMessagingEnabled(ctx, req.Scope) {
		log.Debug().Msg("messaging disabled, message not sent")
		return g.record(req.Kind, Attempt{Outcome: OutcomeSkipped, Reason: ReasonMessagingDisabled})
	}

	to := util.Dialable(req.Phone)
	if util.DigitsOnly(to) == "" {
		log.Warn().Msg("no usable phone number, message not sent")
		return g.record(req.Kind, Attempt{Outcome: OutcomeFailed, Reason: ReasonNoPhone, Err: common.WrapValidation(errNoPhone)})
	}

	creds := g.settings.Credentials(ctx, req.Scope)
	if !creds.Complete() {
		log.Error().Msg("gateway credentials are not configured")
		return g.record(req.Kind, Attempt{Outcome: OutcomeFailed, Reason: ReasonCredentialsMissing, Err: common.WrapConfig(errCredentialsMissing)})
	}

	msg := &common.OutboundMessage{
		MessageID:  g.newID(),
		Kind:       req.Kind,
		Scope:      req.Scope,
		To:         to,
		Body:       RenderTemplate(req.Template, req.Params),
		APIKey:     creds.APIKey,
		InstanceID: creds.InstanceID,
		CreatedAt:  g.now().UTC(),
		Metadata:   req.Metadata,
	}

	start := g.now()
	resp, err := g.adapter.Send(ctx, msg)
	elapsed := g.now().Sub(start).Seconds()
	if err != nil {
		metrics.ObserveGatewayDuration("messages", "failure", elapsed)
		reason := err.Error()
		if resp != nil && resp.Message != "" {
			reason = resp.Message
		}
		log.Error().
			Str("message_id", msg.MessageID).
			Str("error_kind", common.Kind(err)).
			Int("http_status", resp.HTTPStatus()).
			Err(err).
			Msg("gateway rejected message")
		return g.record(req.Kind, Attempt{Outcome: OutcomeFailed, MessageID: msg.MessageID, Reason: reason, Err: err})
	}

	metrics.ObserveGatewayDuration("messages", "success", elapsed)
	providerID := msg.MessageID
	if resp != nil && resp.ProviderID != "" {
		providerID = resp.ProviderID
	}
	log.Debug().Str("message_id", providerID).Msg("gateway accepted message")
	return g.record(req.Kind, Attempt{Outcome: OutcomeSent, MessageID: providerID})
}

// SendOrderNotification sends the order confirmation for order. It reports
// whether the gateway accepted the message.
func (g *Gateway) SendOrderNotification(ctx context.Context, order *models.Order, scope string) bool {
	return g.NotifyOrderPlaced(ctx, order, scope).Sent()
}

// TestConnection checks credentials against the gateway accounts endpoint.
// Non-empty overrides take precedence over the configured credentials.
func (g *Gateway) TestConnection(ctx context.Context, apiKey, instanceID, scope string) ConnectionResult {
	creds := g.settings.Credentials(ctx, scope)
	if key := strings.TrimSpace(apiKey); key != "" {
		creds.APIKey = key
	}
	if id := strings.TrimSpace(instanceID); id != "" {
		creds.InstanceID = id
	}
	if !creds.Complete() {
		return ConnectionResult{Success: false, Message: ReasonCredentialsMissing}
	}

	start := g.now()
	resp, err := g.adapter.Verify(ctx, creds.APIKey, creds.InstanceID)
	elapsed := g.now().Sub(start).Seconds()
	log := g.logger.With().Str("scope", scope).Logger()
	if err != nil {
		metrics.ObserveGatewayDuration("accounts", "failure", elapsed)
		log.Warn().Err(err).Msg("gateway connection test failed")
		return ConnectionResult{Success: false, Message: "connection failed: " + err.Error()}
	}

	switch resp.Status {
	case common.StatusActive:
		metrics.ObserveGatewayDuration("accounts", "success", elapsed)
		log.Info().Msg("gateway connection test succeeded")
		return ConnectionResult{Success: true, Message: "Connection successful. Account is active."}
	case common.StatusRejected:
		metrics.ObserveGatewayDuration("accounts", "failure", elapsed)
		msg := resp.Message
		if msg == "" {
			msg = "connection failed"
		}
		log.Warn().Int("http_status", resp.HTTPStatus()).Str("reason", msg).Msg("gateway connection test rejected")
		return ConnectionResult{Success: false, Message: msg}
	default:
		metrics.ObserveGatewayDuration("accounts", "failure", elapsed)
		log.Warn().Int("http_status", resp.HTTPStatus()).Msg("gateway connection test returned an unreadable body")
		return ConnectionResult{Success: false, Message: fmt.Sprintf("connection failed with HTTP status: %d", resp.HTTPStatus())}
	}
}

func (g *Gateway) record(kind string, a Attempt) Attempt {
	metrics.IncNotification(kind, string(a.Outcome))
	return a
}
