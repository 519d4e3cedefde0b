package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/phone-mailer/internal/hooks"
	"github.com/example/phone-mailer/internal/metrics"
	"github.com/example/phone-mailer/internal/models"
	"github.com/example/phone-mailer/internal/notify"
	"github.com/example/phone-mailer/internal/util"
)

// ReasonEmailUnchanged is reported for address saves that kept the email.
const ReasonEmailUnchanged = "email unchanged"

const (
	maxScopeRunes   = 64
	maxTraceIDRunes = 128
)

// Config contains the runtime settings the worker engine relies on.
type Config struct {
	MsgMaxBytes       int
	WorkerConcurrency int
}

// Record represents a Kafka message delivered to the worker. It keeps the
// engine decoupled from the concrete consumer while carrying the commit
// callback bound to the underlying offset.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commit func(context.Context) error
}

// Clone returns a deep copy of the record so it can be safely shared with
// asynchronous goroutines.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Key = cloneBytes(r.Key)
	clone.Value = cloneBytes(r.Value)
	clone.Headers = cloneHeaders(r.Headers)
	return &clone
}

// Commit acknowledges the record. Records without a commit callback are
// acknowledged trivially.
func (r *Record) Commit(ctx context.Context) error {
	if r == nil || r.commit == nil {
		return nil
	}
	return r.commit(ctx)
}

// Hooks is the set of application hooks the worker dispatches events to.
type Hooks interface {
	OnAccountCreated(ctx context.Context, customer *models.Customer) notify.Attempt
	OnOrderPlaced(ctx context.Context, order *models.Order) notify.Attempt
	OnShipmentCreated(ctx context.Context, shipment *models.Shipment) notify.Attempt
	OnInvoiceCreated(ctx context.Context, invoice *models.Invoice) notify.Attempt
	OnOrderStatusChanged(ctx context.Context, history *models.StatusHistory) notify.Attempt
	OnAddressSaved(ctx context.Context, customer *models.Customer, address *models.Address) hooks.AddressSaveResult
}

// StatusPublisher publishes the outcome of each handled event.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event models.StatusEvent) error
}

// Dependencies collects the runtime collaborators required by the engine.
type Dependencies struct {
	Hooks           Hooks
	StatusPublisher StatusPublisher
	Logger          zerolog.Logger
	Now             func() time.Time
}

// Engine decodes business events, hands them to the hooks and reports one
// status event per record before committing its offset. Each record gets a
// single attempt.
type Engine struct {
	cfg             Config
	hooks           Hooks
	statusPublisher StatusPublisher
	logger          zerolog.Logger

	semaphore *semaphore.Weighted

	now func() time.Time
}

// NewEngine constructs a worker engine using the supplied configuration and
// collaborators.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.WorkerConcurrency < 1 {
		return nil, errors.New("worker: worker concurrency must be >= 1")
	}
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Hooks == nil {
		return nil, errors.New("worker: hooks dependency is required")
	}
	if deps.StatusPublisher == nil {
		return nil, errors.New("worker: status publisher dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "worker_engine").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Engine{
		cfg:             cfg,
		hooks:           deps.Hooks,
		statusPublisher: deps.StatusPublisher,
		logger:          logger,
		semaphore:       semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
		now:             nowFunc,
	}, nil
}

// HandleRecord validates the record and starts asynchronous processing.
// Records that can never be processed are reported as invalid and committed
// straight away.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}

	if err := util.EnsureMaxBytes("payload", record.Value, e.cfg.MsgMaxBytes); err != nil {
		e.reject(ctx, record, &models.Event{EventID: string(record.Key)}, err)
		return
	}

	evt, err := DecodeEvent(record.Value)
	if err != nil {
		if evt == nil {
			evt = &models.Event{}
		}
		if evt.EventID == "" {
			evt.EventID = string(record.Key)
		}
		e.reject(ctx, record, evt, err)
		return
	}
	if evt.TraceID == "" {
		evt.TraceID = string(record.Headers["trace-id"])
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.logger.Error().
			Str("event_id", evt.EventID).
			Err(err).
			Msg("worker: failed to acquire concurrency semaphore")
		return
	}

	go e.processRecord(ctx, record.Clone(), evt)
}

// Wait blocks until every in-flight record has finished or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	weight := int64(e.cfg.WorkerConcurrency)
	if err := e.semaphore.Acquire(ctx, weight); err != nil {
		return err
	}
	e.semaphore.Release(weight)
	return nil
}

func (e *Engine) processRecord(ctx context.Context, record *Record, evt *models.Event) {
	defer e.semaphore.Release(1)

	if ctx.Err() != nil {
		e.logger.Warn().
			Str("event_id", evt.EventID).
			Msg("worker: context cancelled before processing began")
		return
	}

	start := e.now()
	status, err := e.dispatch(ctx, evt)
	if err != nil {
		e.reject(ctx, record, evt, err)
		return
	}

	if ctx.Err() != nil {
		e.logger.Warn().
			Str("event_id", evt.EventID).
			Msg("worker: context cancelled during dispatch; deferring commit for reprocessing")
		return
	}

	e.logger.Info().
		Str("event_id", evt.EventID).
		Str("event_type", evt.Type).
		Str("scope", status.Scope).
		Str("status", status.Status).
		Str("reason", status.Reason).
		Dur("duration", e.now().Sub(start)).
		Msg("worker: event handled")

	e.publishStatus(ctx, status)
	e.commitRecord(ctx, record)
}

// dispatch decodes the payload for evt.Type and calls the matching hook.
func (e *Engine) dispatch(ctx context.Context, evt *models.Event) (models.StatusEvent, error) {
	status := models.StatusEvent{
		EventID:   evt.EventID,
		EventType: evt.Type,
		Scope:     evt.Scope,
		TraceID:   evt.TraceID,
	}

	switch evt.Type {
	case models.EventAccountCreated:
		var customer models.Customer
		if err := decodePayload(evt, &customer); err != nil {
			return status, err
		}
		customer.Scope = orScope(customer.Scope, evt.Scope)
		return withAttempt(status, customer.Scope, e.hooks.OnAccountCreated(ctx, &customer)), nil

	case models.EventOrderPlaced:
		var order models.Order
		if err := decodePayload(evt, &order); err != nil {
			return status, err
		}
		order.Scope = orScope(order.Scope, evt.Scope)
		return withAttempt(status, order.Scope, e.hooks.OnOrderPlaced(ctx, &order)), nil

	case models.EventShipmentCreated:
		var shipment models.Shipment
		if err := decodePayload(evt, &shipment); err != nil {
			return status, err
		}
		scope := applyOrderScope(shipment.Order, evt.Scope)
		return withAttempt(status, scope, e.hooks.OnShipmentCreated(ctx, &shipment)), nil

	case models.EventInvoiceCreated:
		var invoice models.Invoice
		if err := decodePayload(evt, &invoice); err != nil {
			return status, err
		}
		scope := applyOrderScope(invoice.Order, evt.Scope)
		return withAttempt(status, scope, e.hooks.OnInvoiceCreated(ctx, &invoice)), nil

	case models.EventOrderStatusChanged:
		var history models.StatusHistory
		if err := decodePayload(evt, &history); err != nil {
			return status, err
		}
		scope := applyOrderScope(history.Order, evt.Scope)
		return withAttempt(status, scope, e.hooks.OnOrderStatusChanged(ctx, &history)), nil

	case models.EventAddressSaved:
		var saved models.AddressSaved
		if err := decodePayload(evt, &saved); err != nil {
			return status, err
		}
		saved.Customer.Scope = orScope(saved.Customer.Scope, evt.Scope)
		res := e.hooks.OnAddressSaved(ctx, &saved.Customer, &saved.Address)
		status.Scope = saved.Customer.Scope
		status.Email = res.Email
		if res.Changed {
			status.Status = models.StatusEventEmailRegenerated
		} else {
			status.Status = models.StatusEventSkipped
			status.Reason = ReasonEmailUnchanged
		}
		return status, nil
	}

	return status, fmt.Errorf("unsupported event type %q", evt.Type)
}

// DecodeEvent parses and validates an event envelope. On failure the
// partially decoded event is returned when available.
func DecodeEvent(payload []byte) (*models.Event, error) {
	var evt models.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	var errs []error
	if _, err := util.ParseUUIDv4(evt.EventID); err != nil {
		errs = append(errs, fmt.Errorf("event_id: %w", err))
	}
	if !knownEventType(evt.Type) {
		errs = append(errs, fmt.Errorf("type: unsupported event type %q", evt.Type))
	}
	if len(evt.Payload) == 0 || string(evt.Payload) == "null" {
		errs = append(errs, errors.New("payload: required"))
	}
	evt.Scope = strings.TrimSpace(evt.Scope)
	if err := util.EnsureMaxRunes("scope", evt.Scope, maxScopeRunes); err != nil {
		errs = append(errs, err)
	}
	if err := util.EnsureMaxRunes("trace_id", evt.TraceID, maxTraceIDRunes); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return &evt, err
	}
	return &evt, nil
}

func knownEventType(t string) bool {
	switch t {
	case models.EventAccountCreated, models.EventOrderPlaced, models.EventShipmentCreated,
		models.EventInvoiceCreated, models.EventOrderStatusChanged, models.EventAddressSaved:
		return true
	}
	return false
}

func decodePayload(evt *models.Event, dst any) error {
	if err := json.Unmarshal(evt.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return nil
}

func withAttempt(status models.StatusEvent, scope string, a notify.Attempt) models.StatusEvent {
	if scope != "" {
		status.Scope = scope
	}
	status.MessageID = a.MessageID
	status.Reason = a.Reason
	switch a.Outcome {
	case notify.OutcomeSent:
		status.Status = models.StatusEventSent
	case notify.OutcomeSkipped:
		status.Status = models.StatusEventSkipped
	default:
		status.Status = models.StatusEventFailed
		if a.Err != nil {
			status.Error = a.Err.Error()
		}
	}
	return status
}

func applyOrderScope(order *models.Order, scope string) string {
	if order == nil {
		return scope
	}
	order.Scope = orScope(order.Scope, scope)
	return order.Scope
}

func orScope(scope, fallback string) string {
	if s := strings.TrimSpace(scope); s != "" {
		return s
	}
	return fallback
}

func (e *Engine) reject(ctx context.Context, record *Record, evt *models.Event, err error) {
	e.logger.Warn().
		Str("event_id", evt.EventID).
		Str("event_type", evt.Type).
		Err(err).
		Msg("worker: record rejected")
	e.publishStatus(ctx, models.StatusEvent{
		EventID:   evt.EventID,
		EventType: evt.Type,
		Scope:     evt.Scope,
		Status:    models.StatusEventInvalid,
		Error:     err.Error(),
		TraceID:   evt.TraceID,
	})
	e.commitRecord(ctx, record)
}

func (e *Engine) publishStatus(ctx context.Context, event models.StatusEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	metrics.IncWorkerEvent(event.EventType, event.Status)
	if err := e.statusPublisher.PublishStatus(ctx, event); err != nil {
		e.logger.Error().
			Str("event_id", event.EventID).
			Str("status", event.Status).
			Err(err).
			Msg("worker: failed to publish status event")
	}
}

func (e *Engine) commitRecord(ctx context.Context, record *Record) {
	if err := record.Commit(ctx); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
