package verification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-service/internal/client"
	"onboarding-service/internal/config"
	"onboarding-service/internal/hashing"
	"onboarding-service/internal/kvstore"
	redisrepo "onboarding-service/internal/repository/redis"
	"onboarding-service/internal/token"
)

// captureSender records issued codes instead of delivering them.
type captureSender struct {
	codes []string
}

func (s *captureSender) SendCode(_ context.Context, _, code string) error {
	s.codes = append(s.codes, code)
	return nil
}

func (s *captureSender) last() string {
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Verification: config.VerificationConfig{
			CodeTTL:         300 * time.Second,
			ResendCooldown:  60 * time.Second,
			CodeLength:      4,
			AdminCodeLength: 6,
			MaxAttempts:     5,
			JWTSecret:       "test-secret",
			TokenTTL:        time.Hour,
		},
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  1024,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
		},
	}
}

func newTestService(t *testing.T) (*Service, *captureSender, kvstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := testConfig()
	rc := client.NewRedisClientFromAddr(mr.Addr())
	sender := &captureSender{}
	slot := kvstore.NewMemoryStore()
	hasher := hashing.NewHasher(cfg)
	issuer := token.NewIssuer(cfg.Verification.JWTSecret, cfg.Verification.TokenTTL)

	svc := NewService(cfg, redisrepo.NewOTPCache(rc), hasher, issuer, slot, sender)
	return svc, sender, slot, mr
}

func TestIssueAndVerifyCode(t *testing.T) {
	svc, sender, slot, _ := newTestService(t)
	ctx := context.Background()

	cooldown, err := svc.IssueCode(ctx, "User@Example.com", PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, 60, cooldown)
	require.Len(t, sender.last(), 4)

	bearer, err := svc.CheckCode(ctx, "user@example.com", PurposeSignup, sender.last())
	require.NoError(t, err)
	assert.NotEmpty(t, bearer)

	// The token landed in the durable slot.
	stored, err := slot.Get(ctx, kvstore.KeyBearerToken)
	require.NoError(t, err)
	assert.Equal(t, bearer, stored)

	issuer := token.NewIssuer("test-secret", time.Hour)
	claims, err := issuer.Verify(bearer)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, PurposeSignup, claims.Purpose)
}

func TestIssueCodeRejectsInvalidEmail(t *testing.T) {
	svc, sender, _, _ := newTestService(t)

	_, err := svc.IssueCode(context.Background(), "not-an-email", PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, sender.codes)
}

func TestResendCooldownEnforced(t *testing.T) {
	svc, sender, _, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)

	remaining, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	assert.ErrorIs(t, err, ErrResendCooldown)
	assert.Greater(t, remaining, 0)
	assert.Len(t, sender.codes, 1)

	// After the cooldown window a resend goes through.
	mr.FastForward(61 * time.Second)
	_, err = svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)
	assert.Len(t, sender.codes, 2)
}

func TestResendInvalidatesPriorCode(t *testing.T) {
	svc, sender, _, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)
	first := sender.last()

	mr.FastForward(61 * time.Second)
	_, err = svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)
	second := sender.last()

	if first != second {
		_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, first)
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}
	_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, second)
	assert.NoError(t, err)
}

func TestWrongShapeRejectedLocally(t *testing.T) {
	svc, sender, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)

	// Malformed submissions never reach the attempt counter.
	for i := 0; i < 10; i++ {
		_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, "12a4")
		assert.ErrorIs(t, err, ErrInvalidCode)
		_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, "123")
		assert.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, sender.last())
	assert.NoError(t, err)
}

func TestMaxAttemptsConsumesChallenge(t *testing.T) {
	svc, sender, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)

	wrong := "0000"
	if sender.last() == wrong {
		wrong = "1111"
	}

	for i := 0; i < 5; i++ {
		_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, wrong)
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, wrong)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// Even the right code is dead now.
	_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, sender.last())
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestExpiredChallenge(t *testing.T) {
	svc, sender, _, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "user@example.com", PurposeSignup)
	require.NoError(t, err)

	mr.FastForward(301 * time.Second)
	_, err = svc.CheckCode(ctx, "user@example.com", PurposeSignup, sender.last())
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestAdminCodeUsesLongerShape(t *testing.T) {
	svc, sender, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IssueCode(ctx, "admin@example.com", PurposeAdmin)
	require.NoError(t, err)
	require.Len(t, sender.last(), 6)

	// A four-digit submission is the wrong shape for the admin variant.
	_, err = svc.CheckCode(ctx, "admin@example.com", PurposeAdmin, "1234")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.CheckCode(ctx, "admin@example.com", PurposeAdmin, sender.last())
	assert.NoError(t, err)
}

func TestExchangeSendAndVerify(t *testing.T) {
	svc, sender, _, _ := newTestService(t)
	ctx := context.Background()
	ex := NewExchange()

	_, err := svc.SendCode(ctx, ex, "user@example.com", PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCode, ex.State())

	bearer, err := svc.VerifyCode(ctx, ex, PurposeSignup, sender.last())
	require.NoError(t, err)
	assert.NotEmpty(t, bearer)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ex := NewExchange()

	_, err := svc.VerifyCode(context.Background(), ex, PurposeSignup, "1234")
	assert.ErrorIs(t, err, ErrNoChallenge)
}
