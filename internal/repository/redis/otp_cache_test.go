package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-service/internal/client"
	"onboarding-service/internal/models"
)

func newTestOTPCache(t *testing.T) (*OTPCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewOTPCache(client.NewRedisClientFromAddr(mr.Addr())), mr
}

func testChallenge(email string) *models.VerificationChallenge {
	now := time.Now()
	return &models.VerificationChallenge{
		Email:         email,
		Purpose:       "signup",
		CodeHash:      "hash",
		CodeSalt:      "salt",
		PepperVersion: 1,
		IssuedAt:      now,
		ExpiresAt:     now.Add(5 * time.Minute),
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	cache, _ := newTestOTPCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetChallenge(ctx, testChallenge("user@example.com"), 5*time.Minute))

	loaded, err := cache.GetChallenge(ctx, "user@example.com", "signup")
	require.NoError(t, err)
	assert.Equal(t, "hash", loaded.CodeHash)
	assert.Equal(t, 1, loaded.PepperVersion)
}

func TestChallengeKeyedByNormalizedEmail(t *testing.T) {
	cache, _ := newTestOTPCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetChallenge(ctx, testChallenge("user@example.com"), 5*time.Minute))

	// Lookups with casing or whitespace variants hit the same challenge.
	loaded, err := cache.GetChallenge(ctx, "  User@Example.COM ", "signup")
	require.NoError(t, err)
	assert.Equal(t, "hash", loaded.CodeHash)
}

func TestChallengeMissing(t *testing.T) {
	cache, _ := newTestOTPCache(t)

	_, err := cache.GetChallenge(context.Background(), "nobody@example.com", "signup")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeExpiresWithTTL(t *testing.T) {
	cache, mr := newTestOTPCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetChallenge(ctx, testChallenge("user@example.com"), 5*time.Minute))
	mr.FastForward(5*time.Minute + time.Second)

	_, err := cache.GetChallenge(ctx, "user@example.com", "signup")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestNewChallengeResetsAttempts(t *testing.T) {
	cache, _ := newTestOTPCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetChallenge(ctx, testChallenge("user@example.com"), 5*time.Minute))

	attempts, err := cache.IncrementAttempts(ctx, "user@example.com", "signup", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	attempts, err = cache.IncrementAttempts(ctx, "user@example.com", "signup", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	// A fresh challenge starts the attempt count over.
	require.NoError(t, cache.SetChallenge(ctx, testChallenge("user@example.com"), 5*time.Minute))
	attempts, err = cache.IncrementAttempts(ctx, "user@example.com", "signup", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestResendLock(t *testing.T) {
	cache, mr := newTestOTPCache(t)
	ctx := context.Background()

	acquired, err := cache.SetResendLock(ctx, "user@example.com", "signup", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = cache.SetResendLock(ctx, "user@example.com", "signup", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	remaining, err := cache.ResendCooldownRemaining(ctx, "user@example.com", "signup")
	require.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, time.Minute)

	mr.FastForward(61 * time.Second)
	acquired, err = cache.SetResendLock(ctx, "user@example.com", "signup", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestResendCooldownZeroWhenUnlocked(t *testing.T) {
	cache, _ := newTestOTPCache(t)

	remaining, err := cache.ResendCooldownRemaining(context.Background(), "user@example.com", "signup")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)
}
