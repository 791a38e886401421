package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snaplink/snaplink/internal/testutil"
)

// newTestStore connects to the test Redis instance or skips.
func newTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	st, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	if err := testutil.FlushRedis(ctx, st.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return st
}

func TestAliasStore_PutGet(t *testing.T) {
	ctx := context.Background()
	aliases := NewAliasStore(newTestStore(t, ctx))

	if err := aliases.Put(ctx, "abc1234", "https://example.com/x", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	target, err := aliases.Get(ctx, "abc1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if target != "https://example.com/x" {
		t.Errorf("target = %q, want %q", target, "https://example.com/x")
	}

	exists, err := aliases.Exists(ctx, "abc1234")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected alias to exist")
	}
}

func TestAliasStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	aliases := NewAliasStore(newTestStore(t, ctx))

	_, err := aliases.Get(ctx, "zzzzzzz")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	exists, err := aliases.Exists(ctx, "zzzzzzz")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expected alias to be absent")
	}
}

func TestAliasStore_PutTaken(t *testing.T) {
	ctx := context.Background()
	aliases := NewAliasStore(newTestStore(t, ctx))

	if err := aliases.Put(ctx, "abc1234", "https://example.com/first", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := aliases.Put(ctx, "abc1234", "https://example.com/second", time.Hour)
	if !errors.Is(err, ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}

	// The losing write must not clobber the existing record.
	target, err := aliases.Get(ctx, "abc1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if target != "https://example.com/first" {
		t.Errorf("target = %q, want first writer's URL", target)
	}
}

func TestAliasStore_Expiration(t *testing.T) {
	ctx := context.Background()
	aliases := NewAliasStore(newTestStore(t, ctx))

	if err := aliases.Put(ctx, "abc1234", "https://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if _, err := aliases.Get(ctx, "abc1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}

	exists, err := aliases.Exists(ctx, "abc1234")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expired alias should read as absent")
	}
}
