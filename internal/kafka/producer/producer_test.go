package producer

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
)

func TestPublishSyncSendsMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"status":"sent"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})

	p, err := NewFromSyncProducer(sp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	if err := p.PublishSync("status", []byte("evt-1"), map[string][]byte{"content-type": []byte("application/json")}, []byte(`{"status":"sent"}`)); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if !p.IsReady() {
		t.Fatalf("expected producer to be ready after a successful publish")
	}
}

func TestPublishSyncFailureMarksNotReady(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	p, err := NewFromSyncProducer(sp, zerolog.Nop())
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	defer p.Close()

	err = p.PublishSync("status", nil, nil, []byte("{}"))
	if !errors.Is(err, sarama.ErrNotLeaderForPartition) {
		t.Fatalf("expected wrapped sarama error, got %v", err)
	}
	if p.IsReady() {
		t.Fatalf("expected producer to be not ready after a failed publish")
	}
}

func TestPublishSyncRequiresTopic(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p, _ := NewFromSyncProducer(sp, zerolog.Nop())
	defer p.Close()

	if err := p.PublishSync("", nil, nil, nil); err == nil {
		t.Fatalf("expected error for empty topic")
	}
}

func TestNewValidatesInput(t *testing.T) {
	if _, err := New(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewFromSyncProducer(nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without sync producer")
	}
}

func TestToRecordHeaders(t *testing.T) {
	if toRecordHeaders(nil) != nil {
		t.Fatalf("expected nil headers")
	}
	src := []byte("v")
	headers := toRecordHeaders(map[string][]byte{"k": src})
	if len(headers) != 1 || string(headers[0].Key) != "k" || string(headers[0].Value) != "v" {
		t.Fatalf("unexpected headers %+v", headers)
	}
	src[0] = 'x'
	if string(headers[0].Value) != "v" {
		t.Fatalf("expected header values to be copied")
	}
}
