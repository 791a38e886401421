package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// aliasKeyPrefix namespaces alias records in Redis.
const aliasKeyPrefix = "url:"

// Common store errors.
var (
	// ErrNotFound is returned when an alias does not exist or has expired.
	// Callers cannot distinguish the two cases.
	ErrNotFound = errors.New("alias not found")

	// ErrAliasTaken is returned by Put when the alias key already exists.
	ErrAliasTaken = errors.New("alias already taken")
)

// AliasStore is the durable alias -> target URL mapping.
// Every record carries the configured TTL; expired records read as absent.
type AliasStore struct {
	client *redis.Client
}

// NewAliasStore creates an AliasStore on top of a Store.
func NewAliasStore(s *Store) *AliasStore {
	return &AliasStore{client: s.client}
}

// Exists reports whether an alias currently maps to a target URL.
func (a *AliasStore) Exists(ctx context.Context, alias string) (bool, error) {
	n, err := a.client.Exists(ctx, aliasKeyPrefix+alias).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// Put writes the alias record with the given TTL.
// SET NX keeps the write atomic at the key level: losing a race against a
// concurrent writer surfaces as ErrAliasTaken instead of an overwrite.
func (a *AliasStore) Put(ctx context.Context, alias, targetURL string, ttl time.Duration) error {
	ok, err := a.client.SetNX(ctx, aliasKeyPrefix+alias, targetURL, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return ErrAliasTaken
	}
	return nil
}

// Get returns the target URL for an alias.
// Returns ErrNotFound for absent or expired aliases.
func (a *AliasStore) Get(ctx context.Context, alias string) (string, error) {
	target, err := a.client.Get(ctx, aliasKeyPrefix+alias).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return target, nil
}
