package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is the cadence of aggregation poll cycles.
	DefaultPollInterval = 5 * time.Second

	// DefaultBatchSize is the max entries read per poll cycle.
	DefaultBatchSize = 10

	// DefaultClaimInterval is how often to scan for stale pending entries.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending entries
	// from a crashed consumer.
	DefaultClaimIdle = 60 * time.Second
)

// EventLog is the consumer-side surface of the click-event log.
type EventLog interface {
	EnsureGroup(ctx context.Context) error
	ReadNew(ctx context.Context, consumer string, count int64) ([]Entry, error)
	ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, start string, count int64) ([]Entry, string, error)
	Ack(ctx context.Context, ids ...string) error
}

// Counter is the write surface of the per-alias counter store.
type Counter interface {
	Increment(ctx context.Context, alias string) (int64, error)
}

// Aggregator folds undelivered click events into per-alias counters.
//
// It runs as a single periodic background task: one poll cycle executes at
// a time, woken by a ticker. Delivery is at-least-once; aggregation is not
// idempotent against redelivery, so an entry reprocessed after a consumer
// crash double-counts. That trade-off is deliberate (see Stream.Ack).
type Aggregator struct {
	log      EventLog
	counters Counter
	logger   *slog.Logger
	consumer string

	pollInterval  time.Duration
	batchSize     int
	claimInterval time.Duration
	claimIdle     time.Duration

	claimStartID string
	lastClaim    time.Time
	bootstrapped bool

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewAggregator creates a click aggregator reading on behalf of consumer.
func NewAggregator(log EventLog, counters Counter, logger *slog.Logger, consumer string) *Aggregator {
	return &Aggregator{
		log:           log,
		counters:      counters,
		logger:        logger.With("component", "analytics.aggregator", "consumer", consumer),
		consumer:      consumer,
		pollInterval:  DefaultPollInterval,
		batchSize:     DefaultBatchSize,
		claimInterval: DefaultClaimInterval,
		claimIdle:     DefaultClaimIdle,
		claimStartID:  "0-0",
	}
}

// SetPollInterval overrides the default poll cadence.
func (a *Aggregator) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		a.pollInterval = interval
	}
}

// SetBatchSize overrides the default per-cycle batch size.
func (a *Aggregator) SetBatchSize(size int) {
	if size > 0 {
		a.batchSize = size
	}
}

// SetClaimInterval overrides the default stale-claim scan interval.
func (a *Aggregator) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		a.claimInterval = interval
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (a *Aggregator) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		a.claimIdle = idle
	}
}

// Run starts the aggregation loop. Blocks until the context is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("aggregator already started")
	}
	a.started = true
	a.done = make(chan struct{})
	ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	defer close(a.done)

	// Bootstrap the consumer group. A failure here is not fatal: the next
	// tick retries, so a late-starting Redis does not take the process down.
	a.tryBootstrap(ctx)

	a.logger.Info("click aggregator started", "poll_interval", a.pollInterval)

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("click aggregator stopping")
			return ctx.Err()
		case <-ticker.C:
			if !a.bootstrapped && !a.tryBootstrap(ctx) {
				continue
			}
			if err := a.pollOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				a.logger.Error("poll cycle failed", "error", err)
			}
		}
	}
}

// Shutdown gracefully stops the aggregator, letting an in-flight poll
// cycle finish its batch. It implements server.ShutdownFunc.
func (a *Aggregator) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			a.logger.Info("click aggregator shutdown complete")
		case <-ctx.Done():
			a.logger.Warn("click aggregator shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// tryBootstrap ensures the consumer group exists. Returns true on success.
func (a *Aggregator) tryBootstrap(ctx context.Context) bool {
	if err := a.log.EnsureGroup(ctx); err != nil {
		a.logger.Warn("consumer group bootstrap failed, retrying next tick", "error", err)
		return false
	}
	a.bootstrapped = true
	return true
}

// pollOnce runs a single poll cycle: read a bounded batch and fold each
// entry into the counter store, acknowledging strictly after a successful
// increment.
func (a *Aggregator) pollOnce(ctx context.Context) error {
	entries, err := a.maybeClaimStale(ctx)
	if err != nil {
		a.logger.Warn("failed to claim stale pending entries", "error", err)
	}

	if len(entries) == 0 {
		entries, err = a.log.ReadNew(ctx, a.consumer, int64(a.batchSize))
		if err != nil {
			return err
		}
	}

	if len(entries) == 0 {
		return nil
	}

	a.logger.Debug("processing click events", "count", len(entries))

	for _, entry := range entries {
		a.processEntry(ctx, entry)
	}
	return nil
}

// maybeClaimStale periodically reclaims pending entries abandoned by
// crashed consumers so they are eventually reprocessed.
func (a *Aggregator) maybeClaimStale(ctx context.Context) ([]Entry, error) {
	if a.claimInterval <= 0 || a.claimIdle <= 0 {
		return nil, nil
	}
	if !a.lastClaim.IsZero() && time.Since(a.lastClaim) < a.claimInterval {
		return nil, nil
	}

	a.lastClaim = time.Now()
	entries, next, err := a.log.ClaimStale(ctx, a.consumer, a.claimIdle, a.claimStartID, int64(a.batchSize))
	if err != nil {
		return nil, err
	}
	if next != "" {
		a.claimStartID = next
	}
	return entries, nil
}

// processEntry folds one entry into the counter store.
//
// Malformed entries (missing or empty alias) are logged and acknowledged
// immediately: retrying cannot repair a permanently malformed payload.
// On increment failure the entry is left un-acknowledged so the group
// redelivers it later.
func (a *Aggregator) processEntry(ctx context.Context, entry Entry) {
	if entry.Event.Alias == "" {
		a.logger.Warn("dropping malformed click event", "entry_id", entry.ID)
		if err := a.log.Ack(ctx, entry.ID); err != nil {
			a.logger.Warn("failed to ack malformed entry", "entry_id", entry.ID, "error", err)
		}
		return
	}

	count, err := a.counters.Increment(ctx, entry.Event.Alias)
	if err != nil {
		a.logger.Error("increment failed, leaving entry pending",
			"entry_id", entry.ID,
			"alias", entry.Event.Alias,
			"error", err,
		)
		return
	}

	if err := a.log.Ack(ctx, entry.ID); err != nil {
		// The increment already happened; redelivery of this entry will
		// double-count, which at-least-once semantics accept.
		a.logger.Warn("failed to ack processed entry", "entry_id", entry.ID, "error", err)
		return
	}

	a.logger.Debug("click processed",
		"entry_id", entry.ID,
		"alias", entry.Event.Alias,
		"count", count,
	)
}
