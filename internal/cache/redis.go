package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Client wraps the Redis connection used for rate-limit counters.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and registers lifecycle hooks. The
// connection is verified with a ping on start.
func NewClient(lc fx.Lifecycle, logger *zap.Logger, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[REDIS] failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("attempting to connect to redis...")
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("[REDIS CONNECTION FAILED] cannot reach redis. Please check: 1) Redis is running, 2) REDIS_URL is correct. Error: %w", err)
			}
			logger.Info("redis connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close redis connection", zap.Error(err))
				return err
			}
			logger.Info("redis connection closed")
			return nil
		},
	})

	return &Client{rdb: rdb}, nil
}

// Exists reports whether the key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}

// SetWithExpiry sets the key with the given time-to-live.
func (c *Client) SetWithExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}
