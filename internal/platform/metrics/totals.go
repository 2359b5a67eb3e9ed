package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TotalsCache keeps running ".total.last" counters in Redis so they survive
// restarts and stay consistent across instances. When a key is missing the
// caller-supplied count function seeds it from the store; afterwards the
// value is maintained with INCR.
type TotalsCache struct {
	client *redis.Client
}

// NewTotalsCache wraps a redis client. A nil client degrades to counting from
// the store on every call.
func NewTotalsCache(client *redis.Client) *TotalsCache {
	return &TotalsCache{client: client}
}

// GetOrIncr returns the incremented running total for key, seeding the cache
// from count on a miss.
func (c *TotalsCache) GetOrIncr(ctx context.Context, key string, count func(ctx context.Context) (int64, error)) (int64, error) {
	if c == nil || c.client == nil {
		return count(ctx)
	}
	_, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		seed, err := count(ctx)
		if err != nil {
			return 0, err
		}
		if err := c.client.Set(ctx, key, seed, 0).Err(); err != nil {
			return 0, fmt.Errorf("seed total %s: %w", key, err)
		}
		return seed, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get total %s: %w", key, err)
	}
	value, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr total %s: %w", key, err)
	}
	return value, nil
}
