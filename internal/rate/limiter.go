package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	// MaxAttempts failures are tolerated per key within one Cooldown window.
	MaxAttempts int
	Cooldown    time.Duration
	// Prefix namespaces keys, e.g. "totp" or "bc".
	Prefix string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Minute
	}
	return c
}

// Limiter tracks failed attempts per key.
type Limiter interface {
	// Check fails with ErrRateLimited once the key has used its budget.
	Check(ctx context.Context, key string) error
	// RecordFailure spends one attempt. It returns ErrRateLimited when this failure
	// exhausts the budget.
	RecordFailure(ctx context.Context, key string) error
	// Reset clears the key, typically after a success.
	Reset(ctx context.Context, key string) error
}

// RedisLimiter shares fixed-window failure counters across replicas.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedis creates a [RedisLimiter] backed by the given Redis client.
func NewRedis(redisClient redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg.withDefaults(),
	}
}

func (l *RedisLimiter) key(key string) string {
	return "rl:" + l.config.Prefix + ":" + key
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	return nil
}

// RecordFailure implements Limiter.
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	count, err := l.incrementWithTTL(ctx, l.key(key), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *RedisLimiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
