package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/phone-mailer/internal/models"
)

type fakeSyncProducer struct {
	topic   string
	key     []byte
	headers map[string][]byte
	payload []byte
	err     error
}

func (f *fakeSyncProducer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	f.topic = topic
	f.key = key
	f.headers = headers
	f.payload = payload
	return f.err
}

func TestPublishStatus(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := NewStatusPublisher(prod, "phonemailer.status", zerolog.Nop())

	event := models.StatusEvent{
		EventID:   "3f1c8f4e-8c4b-4f51-9a55-3d6c1d0e7a10",
		EventType: models.EventOrderPlaced,
		Status:    models.StatusEventSent,
		MessageID: "wamid.1",
		TraceID:   "trace-1",
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishStatus(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prod.topic != "phonemailer.status" {
		t.Fatalf("unexpected topic %q", prod.topic)
	}
	if string(prod.key) != event.EventID {
		t.Fatalf("expected event id key, got %q", prod.key)
	}
	if string(prod.headers["content-type"]) != "application/json" || string(prod.headers["trace-id"]) != "trace-1" {
		t.Fatalf("unexpected headers %v", prod.headers)
	}
	if string(prod.headers["event-type"]) != models.EventOrderPlaced {
		t.Fatalf("unexpected event-type header %q", prod.headers["event-type"])
	}

	var decoded models.StatusEvent
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.MessageID != "wamid.1" || decoded.Status != models.StatusEventSent {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestPublishStatusWrapsProducerError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewStatusPublisher(&fakeSyncProducer{err: boom}, "status", zerolog.Nop())

	err := pub.PublishStatus(context.Background(), models.StatusEvent{EventID: "id"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped producer error, got %v", err)
	}
}

func TestPublishStatusWithoutProducer(t *testing.T) {
	if NewStatusPublisher(nil, "status", zerolog.Nop()) != nil {
		t.Fatalf("expected nil publisher without producer")
	}
	var pub *StatusPublisher
	if err := pub.PublishStatus(context.Background(), models.StatusEvent{}); !errors.Is(err, ErrProducerNotInitialised()) {
		t.Fatalf("expected not initialised error, got %v", err)
	}
}
