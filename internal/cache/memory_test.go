package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryStoreMiss(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStoreMGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), 0))

	vals, err := store.MGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, []byte("1"), vals[0])
	assert.Nil(t, vals[1])
	assert.Equal(t, []byte("3"), vals[2])
}

func TestMemoryStoreIncrBy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := store.IncrBy(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrBy(ctx, "counter", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMemoryStoreIncrByResetsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	_, err := store.IncrBy(ctx, "counter", 5, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	n, err := store.IncrBy(ctx, "counter", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter must restart from zero")
}
