// Package analytics provides click event capture and aggregation.
package analytics

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream for click events.
	StreamKey = "stream:clicks"

	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "click_aggregators"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// Stream entry field names.
	fieldAlias     = "alias"
	fieldClickedAt = "ts"
)

// ClickEvent represents a single redirect event.
type ClickEvent struct {
	Alias     string
	ClickedAt time.Time
}

// Entry is a click event as delivered by the log, paired with its
// log-assigned entry ID.
type Entry struct {
	ID    string
	Event ClickEvent
}

// values converts the event to the flat stream field map.
func (e ClickEvent) values() map[string]interface{} {
	return map[string]interface{}{
		fieldAlias:     e.Alias,
		fieldClickedAt: e.ClickedAt.UTC().Format(time.RFC3339Nano),
	}
}

// entryFromMessage converts a delivered stream message to an Entry.
// It never fails: missing or mistyped fields are left as zero values so the
// aggregator can decide how to handle the malformed entry.
func entryFromMessage(msg redis.XMessage) Entry {
	entry := Entry{ID: msg.ID}

	if alias, ok := msg.Values[fieldAlias].(string); ok {
		entry.Event.Alias = alias
	}
	if raw, ok := msg.Values[fieldClickedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			entry.Event.ClickedAt = ts
		}
	}

	return entry
}
