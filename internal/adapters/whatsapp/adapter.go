package whatsapp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
	waprovider "github.com/example/phone-mailer/internal/providers/whatsapp"
)

// Option customises adapter behaviour.
type Option func(*Adapter)

// WithRawBodyLimit overrides the maximum number of characters retained from the provider body.
func WithRawBodyLimit(limit int) Option {
	return func(a *Adapter) {
		if limit > 0 {
			a.maxRawChars = limit
		}
	}
}

// Adapter implements common.Adapter on top of a gateway provider.
type Adapter struct {
	logger      zerolog.Logger
	provider    waprovider.Provider
	maxRawChars int
}

// NewAdapter constructs a gateway adapter.
func NewAdapter(provider waprovider.Provider, logger zerolog.Logger, opts ...Option) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("whatsapp adapter: provider dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	a := &Adapter{
		logger:      logger,
		provider:    provider,
		maxRawChars: common.DefaultRawBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Send converts the outbound message into a provider payload and delegates to the provider.
func (a *Adapter) Send(ctx context.Context, msg *common.OutboundMessage) (*common.ProviderResponse, error) {
	if msg == nil {
		return nil, common.WrapValidation(errors.New("whatsapp adapter: message is nil"))
	}

	rawResp, err := a.provider.Send(ctx, buildPayload(msg))
	if err != nil {
		resp := a.buildErrorResponse(rawResp, err)
		a.logger.Warn().
			Str("message_id", msg.MessageID).
			Str("kind", msg.Kind).
			Str("scope", msg.Scope).
			Str("error_kind", common.Kind(err)).
			Err(err).
			Msg("whatsapp adapter send failed")
		return resp, classify(err)
	}

	resp := a.buildSuccessResponse(rawResp)
	a.logger.Debug().
		Str("message_id", msg.MessageID).
		Str("kind", msg.Kind).
		Str("provider_id", resp.ProviderID).
		Msg("whatsapp adapter send succeeded")
	return resp, nil
}

// Verify looks up the gateway account for the given credentials. The returned
// status is active, rejected or unparseable; an error means the gateway could
// not be reached.
func (a *Adapter) Verify(ctx context.Context, apiKey, instanceID string) (*common.ProviderResponse, error) {
	account, err := a.provider.Account(ctx, waprovider.Credentials{APIKey: apiKey, InstanceID: instanceID})
	if err != nil {
		a.logger.Warn().Err(err).Msg("whatsapp adapter account lookup failed")
		return nil, classify(err)
	}

	resp := &common.ProviderResponse{
		Code:    optionalInt(account.Code),
		Message: account.ErrorMessage,
		Raw:     a.truncate(account.Body),
	}
	switch {
	case account.Active:
		resp.Status = common.StatusActive
	case account.Parsed:
		resp.Status = common.StatusRejected
	default:
		resp.Status = common.StatusUnparseable
	}
	return resp, nil
}

func buildPayload(msg *common.OutboundMessage) *waprovider.Payload {
	meta := map[string]string{}
	if msg.MessageID != "" {
		meta["message_id"] = msg.MessageID
	}
	if msg.Kind != "" {
		meta["kind"] = msg.Kind
	}
	if msg.Scope != "" {
		meta["scope"] = msg.Scope
	}
	for key, value := range msg.Metadata {
		if strings.TrimSpace(value) != "" {
			meta[key] = value
		}
	}

	return &waprovider.Payload{
		MessageID: msg.MessageID,
		To:        msg.To,
		Body:      msg.Body,
		Credentials: waprovider.Credentials{
			APIKey:     msg.APIKey,
			InstanceID: msg.InstanceID,
		},
		Meta: meta,
	}
}

func (a *Adapter) buildSuccessResponse(raw *waprovider.RawResponse) *common.ProviderResponse {
	resp := &common.ProviderResponse{Status: common.StatusSent, Message: "sent"}
	if raw == nil {
		return resp
	}
	resp.ProviderID = raw.ID
	resp.Code = optionalInt(raw.Code)
	resp.Raw = a.truncate(raw.Body)
	if !raw.Timestamp.IsZero() {
		resp.Meta = map[string]string{"provider_timestamp": raw.Timestamp.UTC().Format(time.RFC3339Nano)}
	}
	return resp
}

func (a *Adapter) buildErrorResponse(raw *waprovider.RawResponse, err error) *common.ProviderResponse {
	resp := &common.ProviderResponse{Status: common.StatusFailed, Message: err.Error()}
	if raw == nil {
		return resp
	}
	if raw.ErrorMessage != "" {
		resp.Message = raw.ErrorMessage
	}
	resp.Code = optionalInt(raw.Code)
	resp.Raw = a.truncate(raw.Body)
	return resp
}

func (a *Adapter) truncate(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return common.TruncateRaw(body, a.maxRawChars)
}

// classify keeps an already classified error and treats anything else,
// context cancellation included, as a transport failure.
func classify(err error) error {
	if common.Kind(err) != "unknown" {
		return err
	}
	return common.WrapTransport(err)
}

func optionalInt(code int) *int {
	if code == 0 {
		return nil
	}
	c := code
	return &c
}
