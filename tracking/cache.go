package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "tracking:shipment:"

// RedisCache keeps the last good shipment per tracking number so evidence can
// still show a fulfillment history when the carrier API is down.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns nil, nil on a cache miss.
func (c *RedisCache) Get(ctx context.Context, number string) (*Shipment, error) {
	raw, err := c.client.Get(ctx, cacheKey(number)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("tracking: cache get: %w", err)
	}
	var s Shipment
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("tracking: cache decode: %w", err)
	}
	return &s, nil
}

func (c *RedisCache) Put(ctx context.Context, s Shipment) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("tracking: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(s.TrackingNumber), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("tracking: cache put: %w", err)
	}
	return nil
}

func cacheKey(number string) string {
	return cacheKeyPrefix + strings.ToUpper(strings.TrimSpace(number))
}
