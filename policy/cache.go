package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps Redis transport failures during cache
// invalidation. Read-side failures never surface it: a cold or broken
// cache falls back to the underlying store.
var ErrCacheUnavailable = errors.New("policy cache unavailable")

const defaultCacheKey = "login_policy:active"

// CachedStore is a Redis read-through cache over a [Store]. The active
// policy is a single well-known key holding the JSON [Record]; every Save
// writes through to the underlying store and invalidates the cached copy
// before returning, so readers never observe a stale policy after a write
// is acknowledged.
type CachedStore struct {
	inner Store
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewCachedStore wraps inner with a Redis cache. keyPrefix namespaces the
// cache key ("<prefix>:login_policy:active"); ttl bounds staleness from
// out-of-band writes and may be zero for no expiry.
func NewCachedStore(inner Store, client redis.UniversalClient, keyPrefix string, ttl time.Duration) *CachedStore {
	key := defaultCacheKey
	if keyPrefix != "" {
		key = keyPrefix + ":" + defaultCacheKey
	}
	return &CachedStore{
		inner: inner,
		redis: client,
		key:   key,
		ttl:   ttl,
	}
}

// LoadActive returns the cached policy when present, otherwise reads
// through to the underlying store and populates the cache best-effort.
func (s *CachedStore) LoadActive(ctx context.Context) (Policy, error) {
	raw, err := s.redis.Get(ctx, s.key).Bytes()
	if err == nil {
		var rec Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			if p, recErr := FromRecord(rec); recErr == nil {
				return p, nil
			}
		}
		// Corrupt cache entry: drop it and fall through to the store.
		_ = s.redis.Del(ctx, s.key).Err()
	} else if !errors.Is(err, redis.Nil) {
		log.Print("authcore: policy cache read failed")
	}

	p, err := s.inner.LoadActive(ctx)
	if err != nil {
		return Policy{}, err
	}

	if data, jsonErr := json.Marshal(p.Record()); jsonErr == nil {
		if setErr := s.redis.Set(ctx, s.key, data, s.ttl).Err(); setErr != nil {
			log.Print("authcore: policy cache populate failed")
		}
	}

	return p, nil
}

// Save writes through to the underlying store, then invalidates the
// cached copy. An invalidation failure fails the Save: acknowledging a
// write while a stale copy can still be served would break the contract.
func (s *CachedStore) Save(ctx context.Context, p Policy) error {
	if err := s.inner.Save(ctx, p); err != nil {
		return err
	}
	return s.Invalidate(ctx)
}

// Invalidate drops the cached copy of the active policy.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
