package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// countersKey is the Redis hash holding per-alias click totals.
const countersKey = "clicks"

// CounterStore holds per-alias click counters.
// Written only by the click aggregator; read by the stats endpoint.
type CounterStore struct {
	client *redis.Client
}

// NewCounterStore creates a CounterStore on top of a Store.
func NewCounterStore(s *Store) *CounterStore {
	return &CounterStore{client: s.client}
}

// Increment atomically adds 1 to the alias counter and returns the new total.
// The counter is created on first increment.
func (c *CounterStore) Increment(ctx context.Context, alias string) (int64, error) {
	count, err := c.client.HIncrBy(ctx, countersKey, alias, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby failed: %w", err)
	}
	return count, nil
}

// Get returns the click count for an alias. Absent aliases read as zero.
func (c *CounterStore) Get(ctx context.Context, alias string) (int64, error) {
	count, err := c.client.HGet(ctx, countersKey, alias).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis hget failed: %w", err)
	}
	return count, nil
}
