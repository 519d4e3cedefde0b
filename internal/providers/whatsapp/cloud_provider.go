package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
	"github.com/example/phone-mailer/internal/config"
)

const (
	// DefaultBaseURL is the gateway root used when none is configured.
	DefaultBaseURL = "https://api.whatsapp.com/v1/"

	defaultTimeout   = 10 * time.Second
	defaultBodyLimit = 16 * 1024
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CloudOption customises the behaviour of the HTTP gateway provider.
type CloudOption func(*CloudProvider)

// WithCloudHTTPClient overrides the HTTP client used to talk to the gateway.
func WithCloudHTTPClient(client HTTPClient) CloudOption {
	return func(p *CloudProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithCloudBaseURL sets the gateway root. Useful for tests.
func WithCloudBaseURL(baseURL string) CloudOption {
	return func(p *CloudProvider) {
		p.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithCloudClock overrides the clock used for timestamps.
func WithCloudClock(now func() time.Time) CloudOption {
	return func(p *CloudProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithCloudBodyLimit adjusts how many bytes are read from the HTTP response body.
func WithCloudBodyLimit(limit int64) CloudOption {
	return func(p *CloudProvider) {
		if limit > 0 {
			p.maxBodyBytes = limit
		}
	}
}

// CloudProvider implements Provider against the gateway's JSON HTTP API.
type CloudProvider struct {
	logger       zerolog.Logger
	httpClient   HTTPClient
	baseURL      string
	now          func() time.Time
	maxBodyBytes int64
}

// NewCloudProvider constructs an HTTP-backed gateway provider.
func NewCloudProvider(cfg config.GatewayConfig, logger zerolog.Logger, opts ...CloudOption) *CloudProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	provider := &CloudProvider{
		logger:       logger,
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		now:          time.Now,
		maxBodyBytes: cfg.BodyLimitBytes,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}

	if provider.maxBodyBytes <= 0 {
		provider.maxBodyBytes = defaultBodyLimit
	}
	if provider.baseURL == "" {
		provider.baseURL = strings.TrimRight(DefaultBaseURL, "/")
	}

	return provider
}

type messageRequest struct {
	To   string      `json:"to"`
	Type string      `json:"type"`
	Text messageText `json:"text"`
}

type messageText struct {
	Body string `json:"body"`
}

// Send posts a text message to {base}/messages. A send succeeds only when
// the response carries messages[0].id, regardless of the HTTP status.
func (p *CloudProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, common.WrapValidation(errors.New("whatsapp provider: payload is required"))
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, common.WrapValidation(errors.New("whatsapp provider: recipient is required"))
	}
	if payload.Credentials.APIKey == "" {
		return nil, common.WrapConfig(errors.New("whatsapp provider: api key is required"))
	}

	data, err := json.Marshal(messageRequest{
		To:   payload.To,
		Type: "text",
		Text: messageText{Body: payload.Body},
	})
	if err != nil {
		return nil, common.WrapProtocol(fmt.Errorf("whatsapp provider: encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, common.WrapTransport(fmt.Errorf("whatsapp provider: new request: %w", err))
	}
	p.authorize(req, payload.Credentials.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.WrapTransport(fmt.Errorf("whatsapp provider: http do: %w", err))
	}
	defer resp.Body.Close()

	body, err := p.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed, ok := parseBody(body)
	raw := &RawResponse{
		Code:      resp.StatusCode,
		Status:    http.StatusText(resp.StatusCode),
		Body:      body,
		Timestamp: p.now(),
	}
	if ok {
		raw.ID = parsed.messageID()
		raw.ErrorMessage = parsed.errorMessage()
	}

	if raw.ID != "" {
		p.logger.Debug().
			Str("provider_id", raw.ID).
			Int("status_code", resp.StatusCode).
			Msg("whatsapp message accepted")
		return raw, nil
	}

	message := raw.ErrorMessage
	if message == "" {
		message = "unknown error"
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, common.WrapTransport(fmt.Errorf("whatsapp provider: http %d: %s", resp.StatusCode, message))
	}
	if !ok {
		return raw, common.WrapProtocol(fmt.Errorf("whatsapp provider: unparseable response body"))
	}
	return raw, common.WrapProtocol(fmt.Errorf("whatsapp provider: %s", message))
}

// Account fetches {base}/accounts. Only network level failures are returned
// as errors; the HTTP outcome is described by the response.
func (p *CloudProvider) Account(ctx context.Context, creds Credentials) (*AccountResponse, error) {
	if creds.APIKey == "" {
		return nil, common.WrapConfig(errors.New("whatsapp provider: api key is required"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/accounts", nil)
	if err != nil {
		return nil, common.WrapTransport(fmt.Errorf("whatsapp provider: new request: %w", err))
	}
	p.authorize(req, creds.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, common.WrapTransport(fmt.Errorf("whatsapp provider: http do: %w", err))
	}
	defer resp.Body.Close()

	body, err := p.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed, ok := parseBody(body)
	out := &AccountResponse{
		Code:      resp.StatusCode,
		Body:      body,
		Parsed:    ok,
		Timestamp: p.now(),
	}
	if ok {
		_, hasAccount := parsed["account"]
		out.Active = hasAccount && resp.StatusCode >= 200 && resp.StatusCode < 300
		out.ErrorMessage = parsed.errorMessage()
	}
	return out, nil
}

func (p *CloudProvider) authorize(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
}

func (p *CloudProvider) readBody(rc io.ReadCloser) (string, error) {
	if rc == nil {
		return "", nil
	}

	limit := p.maxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return "", common.WrapTransport(fmt.Errorf("whatsapp provider: read body: %w", err))
	}
	return string(data), nil
}

type gatewayBody map[string]any

func parseBody(body string) (gatewayBody, bool) {
	if strings.TrimSpace(body) == "" {
		return nil, false
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, false
	}
	return gatewayBody(parsed), true
}

func (b gatewayBody) messageID() string {
	messages, ok := b["messages"].([]any)
	if !ok || len(messages) == 0 {
		return ""
	}
	first, ok := messages[0].(map[string]any)
	if !ok {
		return ""
	}
	switch id := first["id"].(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func (b gatewayBody) errorMessage() string {
	errObj, ok := b["error"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := errObj["message"].(string)
	return strings.TrimSpace(msg)
}
