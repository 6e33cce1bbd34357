package shopify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore keeps OAuth state nonces until the callback consumes them.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Save(ctx context.Context, state, shop string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(state), shop, ttl).Err(); err != nil {
		return fmt.Errorf("shopify: save oauth state: %w", err)
	}
	return nil
}

// Consume returns the shop the state was issued for and deletes it.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("shopify: consume oauth state: %w", err)
	}
	return shop, nil
}

func stateKey(state string) string {
	return "shopify:oauth:" + state
}
