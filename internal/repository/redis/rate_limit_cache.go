package redis

import (
	"context"
	"fmt"
	"time"

	"onboarding-service/internal/client"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitCache is a fixed-window counter used to throttle the send-code
// and analyse-store endpoints per caller.
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

// Allow increments the window counter for (scope, key) and reports whether
// the caller is still under the limit.
func (c *RateLimitCache) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	count, err := c.client.IncrWithExpire(ctx, rateLimitPrefix+scope+":"+key, window)
	if err != nil {
		return false, fmt.Errorf("failed to apply rate limit: %w", err)
	}
	return count <= int64(limit), nil
}

// Remaining reports how many calls are left in the current window.
func (c *RateLimitCache) Remaining(ctx context.Context, scope, key string, limit int) (int, error) {
	raw, err := c.client.Get(ctx, rateLimitPrefix+scope+":"+key)
	if err != nil {
		// Missing counter means a fresh window.
		return limit, nil
	}

	var count int
	if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
		return 0, fmt.Errorf("invalid rate limit counter: %w", err)
	}
	if count >= limit {
		return 0, nil
	}
	return limit - count, nil
}
