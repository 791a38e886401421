package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/snaplink/snaplink/internal/store"
)

// Service errors.
var (
	ErrInvalidTarget       = errors.New("invalid target URL")
	ErrTargetTooLong       = errors.New("target URL too long")
	ErrLinkNotFound        = errors.New("link not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrGenerationExhausted = errors.New("alias generation exhausted")
)

const (
	maxTargetLength = 2048

	// maxAllocateRetries bounds the collision-retry loop. With 64^7
	// candidate aliases a handful of retries is already astronomically
	// unlikely; the cap exists so the loop provably terminates.
	maxAllocateRetries = 64
)

// AliasStore is the storage surface the service depends on.
type AliasStore interface {
	Exists(ctx context.Context, alias string) (bool, error)
	Put(ctx context.Context, alias, targetURL string, ttl time.Duration) error
	Get(ctx context.Context, alias string) (string, error)
}

// CounterReader reads per-alias click totals for stats queries.
type CounterReader interface {
	Get(ctx context.Context, alias string) (int64, error)
}

// Stats is the per-link statistics view.
type Stats struct {
	Alias   string
	LongURL string
	Clicks  int64
}

// Service handles link business logic.
type Service struct {
	aliases  AliasStore
	counters CounterReader
	baseURL  string
	aliasTTL time.Duration
}

// NewService creates a new Service.
func NewService(aliases AliasStore, counters CounterReader, baseURL string, aliasTTL time.Duration) *Service {
	return &Service{
		aliases:  aliases,
		counters: counters,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		aliasTTL: aliasTTL,
	}
}

// Shorten validates the target URL, allocates an alias and returns the
// composed short URL.
func (s *Service) Shorten(ctx context.Context, targetURL string) (string, error) {
	if err := validateTarget(targetURL); err != nil {
		return "", err
	}

	alias, err := s.Allocate(ctx, targetURL)
	if err != nil {
		return "", err
	}

	return s.ShortURL(alias), nil
}

// Allocate generates an unused alias and atomically writes the alias
// record with the configured TTL. Collisions are retried up to a generous
// cap; hitting the cap returns ErrGenerationExhausted.
func (s *Service) Allocate(ctx context.Context, targetURL string) (string, error) {
	for i := 0; i < maxAllocateRetries; i++ {
		alias, err := Generate()
		if err != nil {
			return "", fmt.Errorf("generate alias: %w", err)
		}

		exists, err := s.aliases.Exists(ctx, alias)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if exists {
			continue
		}

		err = s.aliases.Put(ctx, alias, targetURL, s.aliasTTL)
		if errors.Is(err, store.ErrAliasTaken) {
			// Lost the race to a concurrent allocation; treat as collision.
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return alias, nil
	}
	return "", ErrGenerationExhausted
}

// Resolve returns the target URL for an alias.
// Returns ErrLinkNotFound for absent or expired aliases.
func (s *Service) Resolve(ctx context.Context, alias string) (string, error) {
	target, err := s.aliases.Get(ctx, alias)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return target, nil
}

// Stats returns the statistics view for an alias.
// An absent alias yields ErrLinkNotFound regardless of counter state.
func (s *Service) Stats(ctx context.Context, alias string) (*Stats, error) {
	target, err := s.Resolve(ctx, alias)
	if err != nil {
		return nil, err
	}

	clicks, err := s.counters.Get(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Stats{
		Alias:   alias,
		LongURL: target,
		Clicks:  clicks,
	}, nil
}

// ShortURL composes the public short URL for an alias.
func (s *Service) ShortURL(alias string) string {
	return s.baseURL + "/" + alias
}

// BaseURL returns the configured base URL.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// validateTarget validates a target URL.
func validateTarget(target string) error {
	if target == "" {
		return ErrInvalidTarget
	}

	if len(target) > maxTargetLength {
		return ErrTargetTooLong
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return ErrInvalidTarget
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidTarget
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidTarget
	}

	return nil
}
