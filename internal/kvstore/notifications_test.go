package kvstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationCacheAddAndList(t *testing.T) {
	cache := NewNotificationCache(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, cache.Add(ctx, Notification{ID: "n1", Title: "first"}))
	require.NoError(t, cache.Add(ctx, Notification{ID: "n2", Title: "second"}))

	entries, _, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "n2", entries[0].ID)
	assert.Equal(t, "n1", entries[1].ID)
}

func TestNotificationCacheCapsAtFifty(t *testing.T) {
	cache := NewNotificationCache(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, cache.Add(ctx, Notification{ID: fmt.Sprintf("n%d", i)}))
	}

	entries, _, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 50)
	// The most recent survives, the oldest ten are gone.
	assert.Equal(t, "n59", entries[0].ID)
	assert.Equal(t, "n10", entries[49].ID)
}

func TestNotificationCacheMarkRead(t *testing.T) {
	cache := NewNotificationCache(NewMemoryStore())
	ctx := context.Background()

	_, lastRead, err := cache.List(ctx)
	require.NoError(t, err)
	assert.True(t, lastRead.IsZero())

	require.NoError(t, cache.MarkRead(ctx))
	_, lastRead, err = cache.List(ctx)
	require.NoError(t, err)
	assert.False(t, lastRead.IsZero())
	assert.WithinDuration(t, time.Now(), lastRead, 5*time.Second)
}

func TestNotificationCacheCorruptBlobStartsClean(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyNotifications, "{not json"))

	cache := NewNotificationCache(store)
	entries, _, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, cache.Add(ctx, Notification{ID: "n1"}))
	entries, _, err = cache.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNotificationCacheReplace(t *testing.T) {
	cache := NewNotificationCache(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, cache.Add(ctx, Notification{ID: "stale"}))
	require.NoError(t, cache.Replace(ctx, []Notification{{ID: "a"}, {ID: "b"}}))

	entries, _, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, store.Remove(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
