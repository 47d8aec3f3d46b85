package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newCacheFixture(t *testing.T) (*CachedStore, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := NewMemoryStore()
	return NewCachedStore(inner, rdb, "test", time.Minute), inner, mr
}

func TestCachedStore_MissFallsBackAndPopulates(t *testing.T) {
	cached, inner, mr := newCacheFixture(t)
	ctx := context.Background()

	seed := Default("pol-1", time.Now().UTC())
	if err := inner.Save(ctx, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got, err := cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive failed: %v", err)
	}
	if got.ID() != "pol-1" {
		t.Fatalf("loaded policy id = %q", got.ID())
	}

	if !mr.Exists("test:login_policy:active") {
		t.Fatal("cache not populated after read-through")
	}
}

func TestCachedStore_HitSkipsInner(t *testing.T) {
	cached, inner, _ := newCacheFixture(t)
	ctx := context.Background()

	seed := Default("pol-1", time.Now().UTC())
	if err := cached.Save(ctx, seed); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cached.LoadActive(ctx); err != nil {
		t.Fatalf("warm load failed: %v", err)
	}

	// Change the inner store out-of-band: the cached copy must win until
	// invalidated.
	updated, err := seed.WithMethodDisabled(MethodLocal, "admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if err := inner.Save(ctx, updated); err != nil {
		t.Fatalf("inner save failed: %v", err)
	}

	got, err := cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive failed: %v", err)
	}
	if !got.IsMethodEnabled(MethodLocal) {
		t.Fatal("expected stale cached copy before invalidation")
	}

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	got, err = cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive after invalidate failed: %v", err)
	}
	if got.IsMethodEnabled(MethodLocal) {
		t.Fatal("expected fresh copy after invalidation")
	}
}

func TestCachedStore_SaveInvalidates(t *testing.T) {
	cached, _, mr := newCacheFixture(t)
	ctx := context.Background()

	seed := Default("pol-1", time.Now().UTC())
	if err := cached.Save(ctx, seed); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cached.LoadActive(ctx); err != nil {
		t.Fatalf("warm load failed: %v", err)
	}

	updated, err := seed.WithMethodDisabled(MethodAD, "admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if err := cached.Save(ctx, updated); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	if mr.Exists("test:login_policy:active") {
		t.Fatal("cache entry survived Save")
	}

	got, err := cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive failed: %v", err)
	}
	if got.IsMethodEnabled(MethodAD) {
		t.Fatal("reader observed stale policy after acknowledged Save")
	}
}

func TestCachedStore_CorruptEntryDropped(t *testing.T) {
	cached, inner, mr := newCacheFixture(t)
	ctx := context.Background()

	seed := Default("pol-1", time.Now().UTC())
	if err := inner.Save(ctx, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := mr.Set("test:login_policy:active", "{not-json"); err != nil {
		t.Fatalf("poison failed: %v", err)
	}

	got, err := cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive failed: %v", err)
	}
	if got.ID() != "pol-1" {
		t.Fatalf("loaded policy id = %q", got.ID())
	}
}

func TestCachedStore_RedisDownFallsBack(t *testing.T) {
	cached, inner, mr := newCacheFixture(t)
	ctx := context.Background()

	seed := Default("pol-1", time.Now().UTC())
	if err := inner.Save(ctx, seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	mr.Close()

	got, err := cached.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive with redis down failed: %v", err)
	}
	if got.ID() != "pol-1" {
		t.Fatalf("loaded policy id = %q", got.ID())
	}

	// Invalidation, by contrast, must fail loudly.
	if err := cached.Invalidate(ctx); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestMemoryStore_EmptyReturnsNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.LoadActive(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
