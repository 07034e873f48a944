package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/weiawesome/quill/internal/config"
	pkglog "github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
)

// Outcomes recorded for each consumed message.
const (
	outcomeHandled = "handled"
	outcomeFailed  = "failed"
	outcomeInvalid = "invalid"
	outcomeSkipped = "skipped"
)

const pollTimeout = 100 * time.Millisecond

// offsetStore is the part of *kafka.Consumer used once a message is handled.
type offsetStore interface {
	StoreMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
}

// ConfluentConsumer reads Debezium changes to the follows table and passes
// them to a handler that drops the affected follower counts from the cache.
//
// An offset is stored only after its message was handled, and the background
// auto-commit picks up stored offsets. A crash therefore replays at most the
// uncommitted tail, which is harmless because invalidation is idempotent.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	offsets  offsetStore
	topic    string
	handler  CDCEventHandler
	doneCh   chan struct{}
}

// NewConfluentConsumer joins cfg.GroupID on cfg.Brokers. A group without
// committed offsets starts at the head of the topic: older changes only
// touched counts that have since expired from the cache.
func NewConfluentConsumer(cfg config.KafkaConfig, handler CDCEventHandler) (*ConfluentConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":        cfg.Brokers,
		"group.id":                 cfg.GroupID,
		"auto.offset.reset":        "latest",
		"enable.auto.commit":       true,
		"enable.auto.offset.store": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		offsets:  c,
		topic:    cfg.Topic,
		handler:  handler,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start subscribes to the follows topic and polls it in the background
// until ctx is cancelled or the client reports a fatal error.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.Subscribe(cc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", cc.topic, err)
	}

	go cc.pollLoop(ctx)
	return nil
}

func (cc *ConfluentConsumer) pollLoop(ctx context.Context) {
	l := pkglog.L().With().Str("topic", cc.topic).Logger()
	defer close(cc.doneCh)

	// An invalidation already running at shutdown is allowed to finish.
	handleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("follows CDC consumer shutting down")
			return
		default:
		}

		switch ev := cc.consumer.Poll(int(pollTimeout / time.Millisecond)).(type) {
		case nil:
		case *kafka.Message:
			cc.handleMessage(handleCtx, ev)
		case kafka.Error:
			if ev.IsFatal() {
				l.Error().Err(ev).Msg("fatal kafka error, follows CDC consumer stopped")
				return
			}
			l.Warn().Err(ev).Msg("kafka client error")
		default:
			l.Debug().Str("event", ev.String()).Msg("ignored kafka event")
		}
	}
}

// handleMessage invalidates for msg, then marks it consumed.
func (cc *ConfluentConsumer) handleMessage(ctx context.Context, msg *kafka.Message) {
	l := pkglog.L()

	if msg.TopicPartition.Error != nil {
		l.Warn().Err(msg.TopicPartition.Error).Msg("kafka partition error")
		return
	}

	cc.processMessage(ctx, msg.Value)

	if _, err := cc.offsets.StoreMessage(msg); err != nil {
		l.Warn().Err(err).
			Int32("partition", msg.TopicPartition.Partition).
			Int64("offset", int64(msg.TopicPartition.Offset)).
			Msg("failed to store CDC offset")
	}
}

// processMessage decodes one change and hands it to the handler. Handler
// failures are logged and counted; the change is not retried because the
// count falls out of the cache at its TTL anyway.
func (cc *ConfluentConsumer) processMessage(ctx context.Context, value []byte) string {
	l := pkglog.L()

	event, err := Decode(value)
	if err != nil {
		// Tombstones that follow a delete carry no value.
		if errors.Is(err, ErrEmptyMessage) {
			metrics.RecordCDCEvent("", outcomeSkipped)
			return outcomeSkipped
		}
		l.Error().Err(err).Msg("failed to decode follows CDC event")
		metrics.RecordCDCEvent("", outcomeInvalid)
		return outcomeInvalid
	}

	op := event.Payload.Op
	l.Debug().
		Str("op", op).
		Int64("ts_ms", event.Payload.TsMs).
		Strs("following_ids", event.AffectedUserIDs()).
		Msg("received follows CDC event")

	outcome := outcomeHandled
	if err := cc.handler.HandleCDCEvent(ctx, event); err != nil {
		l.Error().Err(err).Str("op", op).Msg("failed to invalidate follower counts")
		outcome = outcomeFailed
	}
	metrics.RecordCDCEvent(op, outcome)
	return outcome
}

// Close waits for the poll loop to return, then leaves the group, which
// commits the offsets stored so far. Cancel the context given to Start first.
func (cc *ConfluentConsumer) Close() error {
	<-cc.doneCh
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}

var _ CDCEventConsumer = (*ConfluentConsumer)(nil)
