package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ThePyWizard/subgenie/internal/config"
)

// NewClient connects to Redis and pings it. Callers fall back to in-memory
// state when this fails.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Counter counts hits per key in fixed windows shared by every server instance.
type Counter struct {
	client *redis.Client
	prefix string
}

func NewCounter(client *redis.Client, prefix string) *Counter {
	return &Counter{client: client, prefix: prefix}
}

// Hit increments the counter for key in the window containing now and returns
// the new count. The window key expires together with the window.
func (c *Counter) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	slot := now.UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s:%s:%d", c.prefix, key, slot)

	n, err := c.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr %s: %w", redisKey, err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return n, fmt.Errorf("cache expire %s: %w", redisKey, err)
		}
	}
	return n, nil
}

func (c *Counter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
