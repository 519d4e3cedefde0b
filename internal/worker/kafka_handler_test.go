package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/phone-mailer/internal/kafka/consumer"
)

func TestNewRecordFromConsumer(t *testing.T) {
	src := &consumer.Record{
		Topic:     "phonemailer.events",
		Partition: 2,
		Offset:    42,
		Key:       []byte("key"),
		Value:     []byte("value"),
		Timestamp: time.Unix(100, 0),
		Headers:   map[string][]byte{"trace-id": []byte("t")},
	}

	committed := false
	rec := NewRecordFromConsumer(src, func(context.Context) error {
		committed = true
		return nil
	})

	require.Equal(t, int32(2), rec.Partition)
	require.Equal(t, int64(42), rec.Offset)
	require.Equal(t, "value", string(rec.Value))
	src.Value[0] = 'V'
	require.Equal(t, "value", string(rec.Value))

	require.NoError(t, rec.Commit(context.Background()))
	require.True(t, committed)
	require.Nil(t, NewRecordFromConsumer(nil, nil))
}

func TestKafkaHandlerIgnoresNil(t *testing.T) {
	handler := KafkaHandler(nil, nil)
	require.NoError(t, handler(context.Background(), &consumer.Record{}))
}
