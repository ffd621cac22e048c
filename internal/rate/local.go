package rate

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// LocalLimiter keeps one token bucket per key in process. Each bucket holds
// MaxAttempts tokens and refills completely over one Cooldown; idle buckets are
// evicted after a Cooldown.
type LocalLimiter struct {
	config  Config
	now     func() time.Time
	mu      sync.Mutex
	buckets *cache.Cache
}

// NewLocal creates a LocalLimiter. now supplies the time used for refills; nil
// means time.Now.
func NewLocal(cfg Config, now func() time.Time) *LocalLimiter {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	return &LocalLimiter{
		config:  cfg,
		now:     now,
		buckets: cache.New(cfg.Cooldown, 2*cfg.Cooldown),
	}
}

func (l *LocalLimiter) bucket(key string) *xrate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*xrate.Limiter)
		l.buckets.SetDefault(key, lim)
		return lim
	}
	every := xrate.Every(l.config.Cooldown / time.Duration(l.config.MaxAttempts))
	lim := xrate.NewLimiter(every, l.config.MaxAttempts)
	l.buckets.SetDefault(key, lim)
	return lim
}

// Check implements Limiter.
func (l *LocalLimiter) Check(_ context.Context, key string) error {
	if l.bucket(key).TokensAt(l.now()) < 1 {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure implements Limiter.
func (l *LocalLimiter) RecordFailure(_ context.Context, key string) error {
	lim := l.bucket(key)
	now := l.now()
	if !lim.AllowN(now, 1) || lim.TokensAt(now) < 1 {
		return ErrRateLimited
	}
	return nil
}

// Reset implements Limiter.
func (l *LocalLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets.Delete(key)
	return nil
}
