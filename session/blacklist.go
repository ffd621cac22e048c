package session

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CacheBlacklist is an in-process blacklist whose entries expire on their own.
type CacheBlacklist struct {
	entries *cache.Cache
}

// NewCacheBlacklist returns a blacklist with defaultTTL for entries added with a
// zero ttl. Expired entries are swept every cleanup interval.
func NewCacheBlacklist(defaultTTL, cleanup time.Duration) *CacheBlacklist {
	return &CacheBlacklist{entries: cache.New(defaultTTL, cleanup)}
}

// Add implements Blacklist.
func (b *CacheBlacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	b.entries.Set(internal.TokenDigest(token), struct{}{}, ttl)
	return nil
}

// Contains implements Blacklist.
func (b *CacheBlacklist) Contains(_ context.Context, token string) (bool, error) {
	_, found := b.entries.Get(internal.TokenDigest(token))
	return found, nil
}

// Len reports entries not yet swept.
func (b *CacheBlacklist) Len() int {
	return b.entries.ItemCount()
}

// RedisBlacklist shares the blacklist across replicas using SET PX.
type RedisBlacklist struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBlacklist returns a blacklist whose keys live under prefix.
func NewRedisBlacklist(client redis.UniversalClient, prefix string) *RedisBlacklist {
	if prefix == "" {
		prefix = "gv"
	}
	return &RedisBlacklist{redis: client, prefix: prefix}
}

func (b *RedisBlacklist) key(token string) string {
	return b.prefix + ":bl:" + internal.TokenDigest(token)
}

// Add implements Blacklist.
func (b *RedisBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if err := b.redis.Set(ctx, b.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Contains implements Blacklist.
func (b *RedisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.redis.Exists(ctx, b.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}
