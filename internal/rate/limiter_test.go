package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseLimiter(t *testing.T, l Limiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "u1"); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
	}
	if err := l.RecordFailure(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on third failure, got %v", err)
	}
	if err := l.Check(ctx, "u1"); !errors.Is(err, kinds.ErrTooManyAttempts) {
		t.Fatalf("expected TOO_MANY_ATTEMPTS, got %v", err)
	}
	if err := l.Check(ctx, "u2"); err != nil {
		t.Fatalf("other key must be unaffected: %v", err)
	}

	advance(2 * time.Minute)
	if err := l.Check(ctx, "u1"); err != nil {
		t.Fatalf("expected budget to recover after cooldown: %v", err)
	}

	_ = l.RecordFailure(ctx, "u1")
	_ = l.RecordFailure(ctx, "u1")
	if err := l.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, "u1"); err != nil {
		t.Fatalf("expected reset to clear the key: %v", err)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedis(rdb, Config{MaxAttempts: 3, Cooldown: time.Minute, Prefix: "totp"})
	exerciseLimiter(t, l, mr.FastForward)
}

func TestLocalLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLocal(Config{MaxAttempts: 3, Cooldown: time.Minute, Prefix: "totp"}, func() time.Time { return now })
	exerciseLimiter(t, l, func(d time.Duration) { now = now.Add(d) })
}
