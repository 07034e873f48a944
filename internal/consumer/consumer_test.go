package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("schema envelope", func(t *testing.T) {
		msg, err := Decode([]byte(`{"schema":{},"payload":{"op":"c","ts_ms":5,"after":{"id":1,"follower_id":"a","following_id":"b","deleted_at":null}}}`))
		require.NoError(t, err)
		assert.Equal(t, OpCreate, msg.Payload.Op)
		assert.Equal(t, int64(5), msg.Payload.TsMs)
		require.NotNil(t, msg.Payload.After)
		assert.True(t, msg.Payload.After.Active())
	})

	t.Run("bare payload", func(t *testing.T) {
		msg, err := Decode([]byte(`{"op":"u","after":{"follower_id":"a","following_id":"b","deleted_at":1767225600000000}}`))
		require.NoError(t, err)
		assert.Equal(t, OpUpdate, msg.Payload.Op)
		assert.False(t, msg.Payload.After.Active())
	})

	t.Run("string timestamp", func(t *testing.T) {
		msg, err := Decode([]byte(`{"payload":{"op":"u","after":{"following_id":"b","deleted_at":"2026-01-01T00:00:00Z"}}}`))
		require.NoError(t, err)
		assert.False(t, msg.Payload.After.Active())
	})

	t.Run("tombstone", func(t *testing.T) {
		_, err := Decode(nil)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestAffectedUserIDs(t *testing.T) {
	msg := &DebeziumMessage{Payload: DebeziumPayload{
		Before: &DebeziumFollowRecord{FollowingID: "b"},
		After:  &DebeziumFollowRecord{FollowingID: "b"},
	}}
	assert.Equal(t, []string{"b"}, msg.AffectedUserIDs())

	msg = &DebeziumMessage{Payload: DebeziumPayload{Before: &DebeziumFollowRecord{FollowingID: "x"}}}
	assert.Equal(t, []string{"x"}, msg.AffectedUserIDs())

	assert.Empty(t, (&DebeziumMessage{}).AffectedUserIDs())
}

type recordingHandler struct {
	events []*DebeziumMessage
	err    error
}

func (h *recordingHandler) HandleCDCEvent(_ context.Context, event *DebeziumMessage) error {
	h.events = append(h.events, event)
	return h.err
}

func TestProcessMessage(t *testing.T) {
	h := &recordingHandler{err: errors.New("boom")}
	cc := &ConfluentConsumer{handler: h}
	ctx := context.Background()

	assert.Equal(t, outcomeFailed, cc.processMessage(ctx, []byte(`{"payload":{"op":"d","before":{"following_id":"b"}}}`)))
	assert.Equal(t, outcomeSkipped, cc.processMessage(ctx, nil))
	assert.Equal(t, outcomeInvalid, cc.processMessage(ctx, []byte(`{`)))

	h.err = nil
	assert.Equal(t, outcomeHandled, cc.processMessage(ctx, []byte(`{"op":"c","after":{"following_id":"c"}}`)))

	require.Len(t, h.events, 2)
	assert.Equal(t, OpDelete, h.events[0].Payload.Op)
	assert.Equal(t, []string{"c"}, h.events[1].AffectedUserIDs())
}

type recordingOffsets struct {
	stored []kafka.Offset
}

func (o *recordingOffsets) StoreMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	o.stored = append(o.stored, m.TopicPartition.Offset)
	return []kafka.TopicPartition{m.TopicPartition}, nil
}

func TestHandleMessageStoresOffsetAfterHandling(t *testing.T) {
	topic := "dbserver1.public.follows"
	h := &recordingHandler{err: errors.New("cache down")}
	offsets := &recordingOffsets{}
	cc := &ConfluentConsumer{handler: h, offsets: offsets, topic: topic}
	ctx := context.Background()

	msg := func(offset int64, value string) *kafka.Message {
		return &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(offset)},
			Value:          []byte(value),
		}
	}

	// Failed invalidations and undecodable values still advance the group.
	cc.handleMessage(ctx, msg(7, `{"op":"c","after":{"following_id":"b"}}`))
	cc.handleMessage(ctx, msg(8, `{`))
	cc.handleMessage(ctx, msg(9, ""))

	broken := msg(10, `{"op":"c","after":{"following_id":"b"}}`)
	broken.TopicPartition.Error = errors.New("partition eof")
	cc.handleMessage(ctx, broken)

	assert.Equal(t, []kafka.Offset{7, 8, 9}, offsets.stored)
	assert.Len(t, h.events, 1)
}
