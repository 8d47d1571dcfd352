package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

// KeyPrefix namespaces every key written by this service.
const KeyPrefix = "graylogic:facility:"

const pingTimeout = 5 * time.Second

// RedisCache implements weather.Cache on Redis.
type RedisCache struct {
	rdb *goredis.Client
}

// Connect creates a Redis client and verifies it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // Best-effort cleanup on failed connect
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Addr, err)
	}

	return &RedisCache{rdb: rdb}, nil
}

// Get returns the value stored under key. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A ttl <= 0 stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// HealthCheck pings Redis.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return ErrDisabled
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
