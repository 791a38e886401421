package analytics

import (
	"context"
	"log/slog"
	"time"
)

// PublishTimeout is the max time to wait for a stream append.
const PublishTimeout = 100 * time.Millisecond

// Appender is the producer-side surface of the click-event log.
type Appender interface {
	Append(ctx context.Context, event ClickEvent) (string, error)
}

// Publisher enqueues click events to the event log.
type Publisher struct {
	log    Appender
	logger *slog.Logger
}

// NewPublisher creates a new click event publisher.
func NewPublisher(log Appender, logger *slog.Logger) *Publisher {
	return &Publisher{
		log:    log,
		logger: logger.With("component", "analytics.publisher"),
	}
}

// Publish appends a click event to the log synchronously.
func (p *Publisher) Publish(ctx context.Context, event ClickEvent) (string, error) {
	return p.log.Append(ctx, event)
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but never returned: redirect correctness must not
// depend on analytics availability.
func (p *Publisher) PublishAsync(event ClickEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		entryID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish click event",
				"alias", event.Alias,
				"error", err,
			)
			return
		}

		p.logger.Debug("click event published",
			"alias", event.Alias,
			"entry_id", entryID,
		)
	}()
}
