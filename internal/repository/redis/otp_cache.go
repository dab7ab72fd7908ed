package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"onboarding-service/internal/client"
	"onboarding-service/internal/models"
	"onboarding-service/internal/util"
)

// ErrChallengeNotFound is returned when no live challenge exists for the
// email/purpose pair, either never issued or already expired out of Redis.
var ErrChallengeNotFound = errors.New("verification challenge not found")

const (
	otpPrefix        = "otp:"
	otpAttemptPrefix = "otp_attempts:"
	otpResendPrefix  = "otp_resend:"
)

// OTPCache stores outstanding verification challenges in Redis. The code
// itself never lands here, only its argon2 hash; Redis TTL is the
// authoritative expiry.
type OTPCache struct {
	client *client.RedisClient
}

func NewOTPCache(client *client.RedisClient) *OTPCache {
	return &OTPCache{client: client}
}

// SetChallenge stores a challenge, replacing any prior one for the same
// email and purpose: at most one live challenge per flow instance.
func (c *OTPCache) SetChallenge(ctx context.Context, challenge *models.VerificationChallenge, ttl time.Duration) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	key := otpPrefix + challengeKey(challenge.Email, challenge.Purpose)
	if err := c.client.Set(ctx, key, raw, ttl); err != nil {
		util.Error("Failed to cache verification challenge",
			zap.String("email", challenge.Email),
			zap.String("purpose", challenge.Purpose),
			zap.Error(err))
		return fmt.Errorf("failed to cache verification challenge: %w", err)
	}

	// A fresh challenge resets the attempt counter of the old one.
	_ = c.client.Del(ctx, otpAttemptPrefix+challengeKey(challenge.Email, challenge.Purpose))

	util.Debug("Verification challenge cached",
		zap.String("email", challenge.Email),
		zap.String("purpose", challenge.Purpose),
		zap.Duration("ttl", ttl))
	return nil
}

// GetChallenge fetches the live challenge for an email/purpose pair.
func (c *OTPCache) GetChallenge(ctx context.Context, email, purpose string) (*models.VerificationChallenge, error) {
	raw, err := c.client.Get(ctx, otpPrefix+challengeKey(email, purpose))
	if err != nil {
		if strings.Contains(err.Error(), "key not found") {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get verification challenge: %w", err)
	}

	var challenge models.VerificationChallenge
	if err := json.Unmarshal([]byte(raw), &challenge); err != nil {
		return nil, fmt.Errorf("corrupt challenge record: %w", err)
	}
	return &challenge, nil
}

// DeleteChallenge removes a consumed or invalidated challenge.
func (c *OTPCache) DeleteChallenge(ctx context.Context, email, purpose string) error {
	key := challengeKey(email, purpose)
	if err := c.client.Del(ctx, otpPrefix+key, otpAttemptPrefix+key); err != nil {
		return fmt.Errorf("failed to delete verification challenge: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the verify-attempt counter, creating it with the
// challenge TTL so it dies with the challenge.
func (c *OTPCache) IncrementAttempts(ctx context.Context, email, purpose string, ttl time.Duration) (int, error) {
	count, err := c.client.IncrWithExpire(ctx, otpAttemptPrefix+challengeKey(email, purpose), ttl)
	if err != nil {
		return 0, fmt.Errorf("failed to increment verify attempts: %w", err)
	}
	return int(count), nil
}

// SetResendLock arms the resend cooldown. Returns false when a lock is
// already armed, i.e. the cooldown has not reached zero.
func (c *OTPCache) SetResendLock(ctx context.Context, email, purpose string, cooldown time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, otpResendPrefix+challengeKey(email, purpose), "locked", cooldown)
	if err != nil {
		return false, fmt.Errorf("failed to set resend lock: %w", err)
	}
	return ok, nil
}

// ResendCooldownRemaining reports how long until a resend is permitted.
// Zero means resend is allowed now.
func (c *OTPCache) ResendCooldownRemaining(ctx context.Context, email, purpose string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, otpResendPrefix+challengeKey(email, purpose))
	if err != nil {
		return 0, fmt.Errorf("failed to read resend cooldown: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func challengeKey(email, purpose string) string {
	return purpose + ":" + util.NormalizeEmail(email)
}
