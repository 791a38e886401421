package shortener

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snaplink/snaplink/internal/store"
)

// fakeAliasStore is an in-memory AliasStore for unit tests.
type fakeAliasStore struct {
	mu      sync.Mutex
	records map[string]string

	// collisions makes the first N Exists calls report the alias as taken.
	collisions int
	// alwaysTaken makes every Exists call report the alias as taken.
	alwaysTaken bool
	// failWith makes every store call fail with the given error.
	failWith error
}

func newFakeAliasStore() *fakeAliasStore {
	return &fakeAliasStore{records: make(map[string]string)}
}

func (f *fakeAliasStore) Exists(ctx context.Context, alias string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	if f.alwaysTaken {
		return true, nil
	}
	if f.collisions > 0 {
		f.collisions--
		return true, nil
	}
	_, ok := f.records[alias]
	return ok, nil
}

func (f *fakeAliasStore) Put(ctx context.Context, alias, targetURL string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.records[alias]; ok {
		return store.ErrAliasTaken
	}
	f.records[alias] = targetURL
	return nil
}

func (f *fakeAliasStore) Get(ctx context.Context, alias string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	target, ok := f.records[alias]
	if !ok {
		return "", store.ErrNotFound
	}
	return target, nil
}

// fakeCounters is an in-memory CounterReader for unit tests.
type fakeCounters struct {
	counts map[string]int64
}

func (f *fakeCounters) Get(ctx context.Context, alias string) (int64, error) {
	return f.counts[alias], nil
}

func newTestService(aliases AliasStore) *Service {
	return NewService(aliases, &fakeCounters{counts: map[string]int64{}}, "http://snap.li", 30*24*time.Hour)
}

func TestAllocate_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	svc := newTestService(aliases)

	alias, err := svc.Allocate(ctx, "https://example.com/x")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if len(alias) != AliasLength {
		t.Errorf("alias length = %d, want %d", len(alias), AliasLength)
	}
	for _, c := range alias {
		if !strings.ContainsRune(urlSafeAlphabet, c) {
			t.Errorf("alias %q contains reserved character %q", alias, c)
		}
	}

	target, err := svc.Resolve(ctx, alias)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if target != "https://example.com/x" {
		t.Errorf("resolve = %q, want %q", target, "https://example.com/x")
	}
}

func TestAllocate_Unique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	svc := newTestService(aliases)

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		alias, err := svc.Allocate(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		seen[alias] = struct{}{}
	}

	if len(seen) != n {
		t.Errorf("allocated %d distinct aliases out of %d", len(seen), n)
	}
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	aliases.collisions = 3
	svc := newTestService(aliases)

	alias, err := svc.Allocate(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if alias == "" {
		t.Error("expected an alias after retrying collisions")
	}
	if aliases.collisions != 0 {
		t.Errorf("expected all injected collisions consumed, %d left", aliases.collisions)
	}
}

func TestAllocate_Exhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	aliases.alwaysTaken = true
	svc := newTestService(aliases)

	_, err := svc.Allocate(ctx, "https://example.com")
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Errorf("expected ErrGenerationExhausted, got %v", err)
	}
}

func TestAllocate_StoreUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	aliases.failWith = errors.New("connection refused")
	svc := newTestService(aliases)

	_, err := svc.Allocate(ctx, "https://example.com")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(newFakeAliasStore())

	_, err := svc.Resolve(ctx, "zzzzzzz")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestShorten_ComposesBaseURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(newFakeAliasStore())

	shortURL, err := svc.Shorten(ctx, "https://example.com/page")
	if err != nil {
		t.Fatalf("shorten: %v", err)
	}
	if !strings.HasPrefix(shortURL, "http://snap.li/") {
		t.Errorf("short URL %q missing base URL prefix", shortURL)
	}
	if got := len(shortURL) - len("http://snap.li/"); got != AliasLength {
		t.Errorf("alias part length = %d, want %d", got, AliasLength)
	}
}

func TestShorten_InvalidTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		wantErr error
	}{
		{"empty", "", ErrInvalidTarget},
		{"no scheme", "example.com/path", ErrInvalidTarget},
		{"bad scheme", "ftp://example.com", ErrInvalidTarget},
		{"no host", "https://", ErrInvalidTarget},
		{"too long", "https://example.com/" + strings.Repeat("a", 2100), ErrTargetTooLong},
	}

	ctx := context.Background()
	svc := newTestService(newFakeAliasStore())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Shorten(ctx, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Shorten(%q) error = %v, want %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestStats_CountsAndNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	aliases := newFakeAliasStore()
	counters := &fakeCounters{counts: map[string]int64{}}
	svc := NewService(aliases, counters, "http://snap.li", time.Hour)

	alias, err := svc.Allocate(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	counters.counts[alias] = 42

	stats, err := svc.Stats(ctx, alias)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Clicks != 42 {
		t.Errorf("clicks = %d, want 42", stats.Clicks)
	}
	if stats.LongURL != "https://example.com" {
		t.Errorf("long URL = %q, want %q", stats.LongURL, "https://example.com")
	}

	// A stale counter for an expired alias must not resurrect the link.
	counters.counts["zzzzzzz"] = 7
	if _, err := svc.Stats(ctx, "zzzzzzz"); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound for unknown alias, got %v", err)
	}
}
