// Package cache provides the caching layer for reviews and rating
// aggregates. Values are stored as JSON under namespaced string keys; the
// Store interface abstracts the backend so Redis can be swapped for an
// in-process map in tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is a minimal key-value cache backend. Values are opaque byte slices
// (JSON in practice). Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrCacheMiss if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// MGet returns values for keys in order; absent keys yield nil entries.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	// IncrBy atomically increments the integer stored at key, creating it
	// at zero if absent, and returns the new value. The TTL is applied only
	// when the key is created by this call.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
