package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	common "github.com/example/phone-mailer/internal/adapters/common"
)

// Scenario enumerates supported behaviours for the mock provider.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioRejected  Scenario = "rejected"
	ScenarioTransport Scenario = "transport"
	ScenarioTimeout   Scenario = "timeout"
)

// Option customises the mock provider at construction time.
type Option func(*MockProvider)

// WithScenario overrides the default scenario.
func WithScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithLatency sets the artificial latency inserted before responding.
func WithLatency(d time.Duration) Option {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithClock swaps out the clock for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider implements a deterministic provider suitable for tests and
// local runs. It records every payload it receives.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	latency         time.Duration
	now             func() time.Time

	mu           sync.Mutex
	rnd          *rand.Rand
	sent         []Payload
	accountCalls int
}

// NewMockProvider constructs a new mock provider.
func NewMockProvider(logger zerolog.Logger, opts ...Option) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		now:             time.Now,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Send simulates sending a message.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, common.WrapValidation(errors.New("whatsapp mock: payload is required"))
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, common.WrapValidation(errors.New("whatsapp mock: recipient is required"))
	}

	p.mu.Lock()
	p.sent = append(p.sent, *payload)
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, common.WrapTransport(err)
	}

	scenario := p.defaultScenario
	if val, ok := payload.Meta["scenario"]; ok && strings.TrimSpace(val) != "" {
		scenario = Scenario(strings.ToLower(strings.TrimSpace(val)))
	}

	resp := &RawResponse{
		ID:        p.generateID(payload.MessageID),
		Code:      200,
		Status:    "accepted",
		Body:      `{"messages":[{"id":"mock"}]}`,
		Timestamp: p.now(),
	}

	switch scenario {
	case ScenarioSuccess:
		return resp, nil
	case ScenarioRejected:
		resp.ID = ""
		resp.Code = 400
		resp.Status = "rejected"
		resp.Body = `{"error":{"message":"invalid recipient"}}`
		resp.ErrorMessage = "invalid recipient"
		return resp, common.WrapTransport(errors.New("whatsapp mock: http 400: invalid recipient"))
	case ScenarioTransport:
		return nil, common.WrapTransport(errors.New("whatsapp mock: connection refused"))
	case ScenarioTimeout:
		<-ctx.Done()
		return nil, common.WrapTransport(ctx.Err())
	default:
		resp.ID = ""
		resp.Status = "unknown"
		resp.Body = "mock: unknown scenario"
		return resp, common.WrapProtocol(fmt.Errorf("whatsapp mock: unknown scenario %s", scenario))
	}
}

// Account simulates an account lookup. Only the success and transport
// scenarios are distinguished.
func (p *MockProvider) Account(ctx context.Context, creds Credentials) (*AccountResponse, error) {
	p.mu.Lock()
	p.accountCalls++
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, common.WrapTransport(err)
	}

	switch p.defaultScenario {
	case ScenarioTransport, ScenarioTimeout:
		return nil, common.WrapTransport(errors.New("whatsapp mock: connection refused"))
	case ScenarioRejected:
		return &AccountResponse{
			Code:         401,
			Body:         `{"error":{"message":"invalid api key"}}`,
			Parsed:       true,
			ErrorMessage: "invalid api key",
			Timestamp:    p.now(),
		}, nil
	default:
		return &AccountResponse{
			Code:      200,
			Body:      `{"account":{"status":"active"}}`,
			Parsed:    true,
			Active:    true,
			Timestamp: p.now(),
		}, nil
	}
}

// Sent returns a copy of the payloads received so far.
func (p *MockProvider) Sent() []Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Payload(nil), p.sent...)
}

// AccountCalls returns how many account lookups were made.
func (p *MockProvider) AccountCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accountCalls
}

func (p *MockProvider) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *MockProvider) generateID(suggested string) string {
	if strings.TrimSpace(suggested) != "" {
		return suggested
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("wamid-%d", p.rnd.Int63())
}
