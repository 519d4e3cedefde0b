package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx     context.Context
	mu      sync.Mutex
	marked  []int64
	commits int
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                              { return "events" }
func (c *fakeClaim) Partition() int32                           { return 0 }
func (c *fakeClaim) InitialOffset() int64                       { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64                 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type fakeGroup struct {
	session *fakeSession
	claim   *fakeClaim
	errs    chan error
	once    sync.Once

	consumeErr error
	onConsume  func()
	calls      int
}

func newFakeGroup(msgs ...*sarama.ConsumerMessage) *fakeGroup {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeGroup{
		session: &fakeSession{ctx: context.Background()},
		claim:   &fakeClaim{messages: ch},
		errs:    make(chan error),
	}
}

func (g *fakeGroup) Consume(_ context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	g.calls++
	if g.onConsume != nil {
		g.onConsume()
	}
	if g.consumeErr != nil {
		return g.consumeErr
	}
	if err := handler.Setup(g.session); err != nil {
		return err
	}
	if err := handler.ConsumeClaim(g.session, g.claim); err != nil {
		return err
	}
	if err := handler.Cleanup(g.session); err != nil {
		return err
	}
	return sarama.ErrClosedConsumerGroup
}

func (g *fakeGroup) Errors() <-chan error { return g.errs }

func (g *fakeGroup) Close() error {
	g.once.Do(func() { close(g.errs) })
	return nil
}

func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func TestConsumeDeliversRecordsAndCommits(t *testing.T) {
	group := newFakeGroup(
		&sarama.ConsumerMessage{Topic: "events", Offset: 7, Key: []byte("k"), Value: []byte(`{"a":1}`),
			Headers: []*sarama.RecordHeader{{Key: []byte("trace-id"), Value: []byte("t-1")}, nil}},
		&sarama.ConsumerMessage{Topic: "events", Offset: 8, Value: []byte(`{}`)},
	)
	c, err := NewFromGroup(group, "group", zerolog.Nop())
	require.NoError(t, err)

	var got []*Record
	err = c.Consume(context.Background(), []string{"events"}, func(ctx context.Context, rec *Record) error {
		got = append(got, rec)
		if rec.Offset == 7 {
			require.NoError(t, c.Commit(ctx, rec))
			require.NoError(t, c.Commit(ctx, rec))
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.Len(t, got, 2)
	require.Equal(t, []byte("k"), got[0].Key)
	require.Equal(t, map[string][]byte{"trace-id": []byte("t-1")}, got[0].Headers)
	require.Nil(t, got[1].Headers)
	require.Equal(t, []int64{7}, group.session.marked, "uncommitted records stay unmarked")
	require.Equal(t, 1, group.session.commits)
}

func TestConsumeStopsWithContextAfterSessionFailure(t *testing.T) {
	group := newFakeGroup()
	group.consumeErr = errors.New("coordinator not available")
	ctx, cancel := context.WithCancel(context.Background())
	group.onConsume = cancel

	c, err := NewFromGroup(group, "group", zerolog.Nop())
	require.NoError(t, err)

	err = c.Consume(ctx, []string{"events"}, func(context.Context, *Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, group.calls)
	require.NoError(t, c.Close())
}

func TestConsumeValidatesArguments(t *testing.T) {
	c, err := NewFromGroup(newFakeGroup(), "group", zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.Error(t, c.Consume(context.Background(), nil, func(context.Context, *Record) error { return nil }))
	require.Error(t, c.Consume(context.Background(), []string{"events"}, nil))
}

func TestCommitRequiresSessionData(t *testing.T) {
	c, err := NewFromGroup(newFakeGroup(), "group", zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.Error(t, c.Commit(context.Background(), nil))
	require.Error(t, c.Commit(context.Background(), &Record{}))
}

func TestNewValidatesInput(t *testing.T) {
	_, err := New(nil, "group", zerolog.Nop())
	require.Error(t, err)
	_, err = New([]string{"localhost:9092"}, "", zerolog.Nop())
	require.Error(t, err)
	_, err = NewFromGroup(nil, "group", zerolog.Nop())
	require.Error(t, err)
}
