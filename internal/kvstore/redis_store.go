package kvstore

import (
	"context"
	"strings"

	"onboarding-service/internal/client"
)

// RedisStore backs the durable slots with Redis. Values have no TTL; slots
// are cleared explicitly on flow completion or logout.
type RedisStore struct {
	client *client.RedisClient
}

func NewRedisStore(client *client.RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key)
	if err != nil {
		if strings.Contains(err.Error(), "key not found") {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0)
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}
