package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-service/internal/client"
	"onboarding-service/internal/flow"
)

func newTestSessionCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewSessionCache(client.NewRedisClientFromAddr(mr.Addr())), mr
}

func TestSessionCacheCreateAndGet(t *testing.T) {
	cache, _ := newTestSessionCache(t)
	ctx := context.Background()

	session, err := cache.Create(ctx, "contact")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "contact", session.Flow)
	assert.Equal(t, 1, session.CurrentStep)

	loaded, err := cache.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.NotNil(t, loaded.Fields)
}

func TestSessionCacheGetMissing(t *testing.T) {
	cache, _ := newTestSessionCache(t)

	_, err := cache.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, flow.ErrSessionNotFound)
}

func TestSessionCacheUpdateRoundTrip(t *testing.T) {
	cache, _ := newTestSessionCache(t)
	ctx := context.Background()

	session, err := cache.Create(ctx, "order")
	require.NoError(t, err)

	session.Fields["store_url"] = "foo.myshopify.com"
	session.CurrentStep = 3
	require.NoError(t, cache.Update(ctx, session))

	loaded, err := cache.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.CurrentStep)
	assert.Equal(t, "foo.myshopify.com", loaded.Fields["store_url"])
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))
}

func TestSessionCacheDelete(t *testing.T) {
	cache, _ := newTestSessionCache(t)
	ctx := context.Background()

	session, err := cache.Create(ctx, "auth")
	require.NoError(t, err)
	require.NoError(t, cache.Delete(ctx, session.ID))

	_, err = cache.Get(ctx, session.ID)
	assert.ErrorIs(t, err, flow.ErrSessionNotFound)
}
