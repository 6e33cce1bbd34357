package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNonceStore remembers redeemed magic links until they would have
// expired anyway.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "auth:magic:"+id, 1, ttl).Result()
}
