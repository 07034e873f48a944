package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// Debezium operation codes.
const (
	OpCreate   = "c"
	OpUpdate   = "u"
	OpDelete   = "d"
	OpSnapshot = "r"
)

var ErrEmptyMessage = errors.New("empty CDC message")

// DebeziumFollowRecord represents a row from the follows table in a Debezium CDC event.
// DeletedAt stays raw because the connector may render timestamps as strings or epoch numbers.
type DebeziumFollowRecord struct {
	ID          int64           `json:"id"`
	FollowerID  string          `json:"follower_id"`
	FollowingID string          `json:"following_id"`
	DeletedAt   json.RawMessage `json:"deleted_at"`
}

// Active reports whether the row is a live follow edge.
func (r *DebeziumFollowRecord) Active() bool {
	return len(r.DeletedAt) == 0 || bytes.Equal(r.DeletedAt, []byte("null"))
}

// DebeziumPayload is the payload field of a Debezium CDC message.
type DebeziumPayload struct {
	Before *DebeziumFollowRecord `json:"before"`
	After  *DebeziumFollowRecord `json:"after"`
	Op     string                `json:"op"`
	TsMs   int64                 `json:"ts_ms"`
}

// DebeziumMessage is the top-level Debezium CDC message envelope.
type DebeziumMessage struct {
	Payload DebeziumPayload `json:"payload"`
}

// AffectedUserIDs returns the followed users whose follower count the event may change.
func (m *DebeziumMessage) AffectedUserIDs() []string {
	var ids []string
	seen := make(map[string]struct{}, 2)
	for _, rec := range []*DebeziumFollowRecord{m.Payload.Before, m.Payload.After} {
		if rec == nil || rec.FollowingID == "" {
			continue
		}
		if _, ok := seen[rec.FollowingID]; ok {
			continue
		}
		seen[rec.FollowingID] = struct{}{}
		ids = append(ids, rec.FollowingID)
	}
	return ids
}

// Decode parses a Debezium message value. Both the schema envelope
// ({"schema":...,"payload":{...}}) and the bare payload produced with
// value.converter.schemas.enable=false are accepted.
func Decode(value []byte) (*DebeziumMessage, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return nil, ErrEmptyMessage
	}

	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, err
	}

	raw := value
	if len(envelope.Payload) > 0 && !bytes.Equal(envelope.Payload, []byte("null")) {
		raw = envelope.Payload
	}

	var msg DebeziumMessage
	if err := json.Unmarshal(raw, &msg.Payload); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CDCEventHandler processes a decoded Debezium CDC message.
type CDCEventHandler interface {
	HandleCDCEvent(ctx context.Context, event *DebeziumMessage) error
}

// CDCEventConsumer manages the Kafka consumer lifecycle.
type CDCEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
