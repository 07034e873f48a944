package service

import (
	"context"
	"time"

	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/metrics"
	"github.com/weiawesome/quill/pkg/pubsub"
)

func utcNow() time.Time { return time.Now().UTC() }

// publishEvent emits a domain event after the owning transaction committed.
// Failures are logged and counted; they never fail the caller.
func publishEvent(ctx context.Context, pub pubsub.Publisher, channel, eventType, aggregateID, actorID string, payload interface{}) {
	if pub == nil {
		return
	}
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, aggregateID, actorID, payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		metrics.RecordEvent(eventType, false)
		return
	}

	if err := pub.Publish(context.WithoutCancel(ctx), channel, event); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Str("channel", channel).Msg("failed to publish event")
		metrics.RecordEvent(eventType, false)
		return
	}
	metrics.RecordEvent(eventType, true)
}
