package consumer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const rejoinBackoff = time.Second

// Handler receives every record of the subscribed topics. A returned error is
// logged and the record stays uncommitted.
type Handler func(ctx context.Context, record *Record) error

// Consumer reads business events from a consumer group. Offsets never move
// on their own: a record is committed only through Commit.
type Consumer struct {
	logger  zerolog.Logger
	group   sarama.ConsumerGroup
	groupID string

	drained chan struct{}
	running sync.WaitGroup
}

// Record is one Kafka message together with the session that delivered it.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage

	once sync.Once
}

// New joins groupID on brokers with auto commit disabled.
func New(brokers []string, groupID string, logger zerolog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer: at least one broker is required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}

	group, err := sarama.NewConsumerGroup(brokers, groupID, groupConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: create consumer group: %w", err)
	}
	return NewFromGroup(group, groupID, logger)
}

// NewFromGroup wraps an existing consumer group, which must report errors on
// its Errors channel.
func NewFromGroup(group sarama.ConsumerGroup, groupID string, logger zerolog.Logger) (*Consumer, error) {
	if group == nil {
		return nil, errors.New("kafka consumer: consumer group is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &Consumer{
		logger:  logger.With().Str("group_id", groupID).Logger(),
		group:   group,
		groupID: groupID,
		drained: make(chan struct{}),
	}
	go c.logGroupErrors()
	return c, nil
}

// Consume blocks until ctx ends or the group is closed, rejoining the group
// after every rebalance or transient failure.
func (c *Consumer) Consume(ctx context.Context, topics []string, handle Handler) error {
	if len(topics) == 0 {
		return errors.New("kafka consumer: at least one topic is required")
	}
	if handle == nil {
		return errors.New("kafka consumer: handler is required")
	}

	c.running.Add(1)
	defer c.running.Done()

	session := &sessionHandler{logger: c.logger, handle: handle}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, topics, session)
		switch {
		case err == nil:
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		default:
			c.logger.Error().Err(err).Strs("topics", topics).Msg("kafka consumer session failed, rejoining")
			select {
			case <-ctx.Done():
			case <-time.After(rejoinBackoff):
			}
		}
	}
	return ctx.Err()
}

// Commit marks record and flushes the group offsets synchronously. Only the
// first call per record has an effect.
func (c *Consumer) Commit(_ context.Context, record *Record) error {
	if record == nil {
		return errors.New("kafka consumer: record is required")
	}
	if record.session == nil || record.message == nil {
		return errors.New("kafka consumer: record missing session data")
	}
	record.once.Do(func() {
		record.session.MarkMessage(record.message, "")
		record.session.Commit()
	})
	return nil
}

// Close leaves the group and waits for Consume and the error log to finish.
func (c *Consumer) Close() error {
	err := c.group.Close()
	c.running.Wait()
	<-c.drained
	return err
}

func (c *Consumer) logGroupErrors() {
	defer close(c.drained)
	for err := range c.group.Errors() {
		if err != nil {
			c.logger.Error().Err(err).Msg("kafka consumer group error")
		}
	}
}

type sessionHandler struct {
	logger zerolog.Logger
	handle Handler
}

func (h *sessionHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info().
		Str("member_id", session.MemberID()).
		Int32("generation", session.GenerationID()).
		Interface("claims", session.Claims()).
		Msg("kafka consumer joined group")
	return nil
}

func (h *sessionHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info().Int32("generation", session.GenerationID()).Msg("kafka consumer left generation")
	return nil
}

func (h *sessionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		record := newRecord(session, msg)
		if err := h.handle(session.Context(), record); err != nil {
			h.logger.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("kafka consumer handler error")
		}
	}
	return nil
}

func newRecord(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) *Record {
	record := &Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       append([]byte(nil), msg.Key...),
		Value:     append([]byte(nil), msg.Value...),
		Timestamp: msg.Timestamp,
		session:   session,
		message:   msg,
	}
	for _, h := range msg.Headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		if record.Headers == nil {
			record.Headers = make(map[string][]byte, len(msg.Headers))
		}
		record.Headers[string(h.Key)] = append([]byte(nil), h.Value...)
	}
	return record
}

func groupConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "phonemailer-worker"
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Enable = false
	cfg.Consumer.Return.Errors = true
	return cfg
}
