package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream is the Redis-backed click-event log.
// Entries are appended by the redirect path and consumed through a named
// consumer group by the aggregator.
type Stream struct {
	client *redis.Client
}

// NewStream creates a Stream on the given Redis client.
func NewStream(client *redis.Client) *Stream {
	return &Stream{client: client}
}

// Append durably appends a click event and returns its assigned entry ID.
// Entry IDs are assigned by Redis and are unique and totally ordered
// within the stream.
func (s *Stream) Append(ctx context.Context, event ClickEvent) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: event.values(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group positioned at the start of the
// stream, creating the stream itself if needed. Idempotent: an existing
// group is not an error.
func (s *Stream) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

// ReadNew returns up to count entries not yet delivered to any consumer in
// the group, in log order. Returns an empty slice when nothing is pending.
func (s *Stream) ReadNew(ctx context.Context, consumer string, count int64) ([]Entry, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    count,
		Block:    -1, // non-blocking; the aggregator supplies the cadence
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(streams[0].Messages))
	for _, msg := range streams[0].Messages {
		entries = append(entries, entryFromMessage(msg))
	}
	return entries, nil
}

// ClaimStale transfers ownership of pending entries idle longer than
// minIdle to the given consumer, scanning from start. Returns the claimed
// entries and the cursor for the next scan.
func (s *Stream) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, start string, count int64) ([]Entry, string, error) {
	messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    start,
		Count:    count,
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, start, fmt.Errorf("xautoclaim: %w", err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, entryFromMessage(msg))
	}
	return entries, next, nil
}

// Ack marks entries as processed for the group. Idempotent: acknowledging
// an already-acknowledged entry is a no-op.
func (s *Stream) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
