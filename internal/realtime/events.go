package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"poll-service/internal/database"
)

// EventKind tags the change-feed notification union. Payloads are
// parsed and validated at the boundary instead of trusting loose
// fields downstream.
type EventKind string

const (
	EventVoteInserted EventKind = "VOTE_INSERTED"
	EventVoteDeleted  EventKind = "VOTE_DELETED"
	EventPollUpdated  EventKind = "POLL_UPDATED"
	EventPollDeleted  EventKind = "POLL_DELETED"
)

// ChangeEvent is one row-level change notification. Every kind carries
// the affected poll identifier; consumers re-derive poll state from
// the store rather than patching from payloads.
type ChangeEvent struct {
	Kind   EventKind `json:"kind"`
	PollID uuid.UUID `json:"poll_id"`
}

// ParseChangeEvent decodes and validates a raw change-feed payload
func ParseChangeEvent(payload []byte) (ChangeEvent, error) {
	var raw struct {
		Kind   string `json:"kind"`
		PollID string `json:"poll_id"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ChangeEvent{}, fmt.Errorf("malformed change event: %w", err)
	}

	kind := EventKind(raw.Kind)
	switch kind {
	case EventVoteInserted, EventVoteDeleted, EventPollUpdated, EventPollDeleted:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown change event kind %q", raw.Kind)
	}

	pollID, err := uuid.Parse(raw.PollID)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("invalid poll id in change event: %w", err)
	}

	return ChangeEvent{Kind: kind, PollID: pollID}, nil
}

// Publisher pushes change events onto the shared feed. Services hold
// this interface so they never depend on the transport directly.
type Publisher interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Publisher backed by Redis pub/sub
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) PublishChange(ctx context.Context, event ChangeEvent) error {
	if p.client == nil {
		return ErrStreamUnavailable
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, database.ChangeFeedChannel, payload).Err()
}
