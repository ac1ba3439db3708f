package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/motorplace/ugc-service/internal/cache"
)

// CounterStore tracks consumed cost per user key within the current fixed
// window. Consume reports whether the caller may spend cost more units
// against limit; when denied, retryAfter is the time until the window
// resets.
type CounterStore interface {
	Consume(ctx context.Context, userKey string, cost, limit int64) (allowed bool, retryAfter time.Duration, err error)
}

type window struct {
	consumed int64
	resetAt  time.Time
}

// MemoryCounterStore is an in-process CounterStore for single-instance
// deployments and tests. Check and increment happen under one lock, so a
// denied request never consumes budget.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*window
	nowFunc func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		windows: make(map[string]*window),
		nowFunc: time.Now,
	}
}

func (s *MemoryCounterStore) Consume(_ context.Context, userKey string, cost, limit int64) (bool, time.Duration, error) {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[userKey]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Truncate(rateLimitWindow).Add(rateLimitWindow)}
		s.windows[userKey] = w
	}

	if w.consumed+cost > limit {
		return false, w.resetAt.Sub(now), nil
	}
	w.consumed += cost
	return true, 0, nil
}

// RedisCounterStore backs the counter with a shared cache.Store so a
// horizontally scaled deployment shares one budget per user. Keys are
// bucketed by wall-clock minute; INCRBY then a compare means a denied
// request still consumes, which over-counts by at most one request per
// window and errs on the strict side.
type RedisCounterStore struct {
	store   cache.Store
	nowFunc func() time.Time
}

func NewRedisCounterStore(store cache.Store) *RedisCounterStore {
	return &RedisCounterStore{store: store, nowFunc: time.Now}
}

func (s *RedisCounterStore) Consume(ctx context.Context, userKey string, cost, limit int64) (bool, time.Duration, error) {
	now := s.nowFunc()
	bucket := now.Truncate(rateLimitWindow)
	key := fmt.Sprintf("ratelimit:%s:%d", userKey, bucket.Unix())

	// TTL of two windows keeps stale buckets from accumulating while never
	// expiring the active one mid-window.
	total, err := s.store.IncrBy(ctx, key, cost, 2*rateLimitWindow)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if total > limit {
		return false, bucket.Add(rateLimitWindow).Sub(now), nil
	}
	return true, 0, nil
}
