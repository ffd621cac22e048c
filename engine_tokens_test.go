package goVault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestIssuePairClaims(t *testing.T) {
	engine, clock := newTestEngine(t, nil)
	ctx := context.Background()

	pair, err := engine.IssuePair(ctx, "u1", SessionMeta{IP: "192.0.2.1"})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := engine.VerifyAccess(ctx, pair.Access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "u1" || claims.Issuer != engine.config.Token.Issuer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != engine.config.Token.Audience {
		t.Fatalf("unexpected audience: %v", claims.Audience)
	}
	if life := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); life > engine.config.Token.AccessTTL+time.Second {
		t.Fatalf("access lifetime %v exceeds TTL", life)
	}
	if !pair.AccessExpiresAt.Equal(clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", pair.AccessExpiresAt)
	}

	refreshClaims, rec, err := engine.VerifyRefresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if refreshClaims.TokenID != pair.TokenID || rec.PrincipalID != "u1" || rec.Meta.IP != "192.0.2.1" {
		t.Fatalf("unexpected refresh record: %+v claims=%+v", rec, refreshClaims)
	}
	if len(pair.TokenID) != 32 {
		t.Fatalf("expected 32 hex char token id, got %q", pair.TokenID)
	}
}

func TestAccessAndRefreshKeysAreIndependent(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	if _, err := engine.VerifyAccess(ctx, pair.Refresh); !errors.Is(err, ErrTokenInvalid) && !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
	if _, _, err := engine.VerifyRefresh(ctx, pair.Access); err == nil {
		t.Fatal("access token must not verify as refresh")
	}
}

func TestRefreshAfterAccessExpiry(t *testing.T) {
	engine, clock := newTestEngine(t, nil)
	ctx := context.Background()

	pair, err := engine.IssuePair(ctx, "u1", SessionMeta{})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	clock.Advance(20 * time.Minute)
	if _, err := engine.VerifyAccess(ctx, pair.Access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	res, err := engine.RefreshAccess(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("RefreshAccess: %v", err)
	}
	if res.Rotated || res.Refresh != "" || res.TokenID != pair.TokenID {
		t.Fatalf("refresh must not rotate by default: %+v", res)
	}

	claims, err := engine.VerifyAccess(ctx, res.Access)
	if err != nil {
		t.Fatalf("VerifyAccess(new): %v", err)
	}
	if !claims.IssuedAt.Time.Equal(clock.Now().Truncate(time.Second)) {
		t.Fatalf("expected iat at refresh time, got %v", claims.IssuedAt.Time)
	}
}

func TestRefreshRotation(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Token.RotateRefresh = true })
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	res, err := engine.RefreshAccess(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("RefreshAccess: %v", err)
	}
	if !res.Rotated || res.Refresh == "" || res.TokenID == pair.TokenID {
		t.Fatalf("expected rotation, got %+v", res)
	}

	if _, err := engine.RefreshAccess(ctx, pair.Refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected old refresh revoked, got %v", err)
	}
	if _, err := engine.RefreshAccess(ctx, res.Refresh); err != nil {
		t.Fatalf("new refresh must work: %v", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Token.RotateRefresh = true })
	ctx := context.Background()
	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.RefreshAccess(ctx, pair.Refresh); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one rotation to succeed, got %d", wins)
	}
}

func TestSessionCap(t *testing.T) {
	sink := &recordingSink{}
	engine, clock := newTestEngine(t, nil, withSink(sink))
	ctx := context.Background()

	pairs := make([]*TokenPair, 6)
	for i := range pairs {
		p, err := engine.IssuePair(ctx, "u1", SessionMeta{})
		if err != nil {
			t.Fatalf("IssuePair %d: %v", i, err)
		}
		pairs[i] = p
		clock.Advance(time.Second)
	}

	if _, _, err := engine.VerifyRefresh(ctx, pairs[0].Refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected earliest refresh revoked, got %v", err)
	}
	for i, p := range pairs[1:] {
		if _, _, err := engine.VerifyRefresh(ctx, p.Refresh); err != nil {
			t.Fatalf("pair %d should still verify: %v", i+1, err)
		}
	}

	sessions, err := engine.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 5 || sessions[0].TokenID != pairs[1].TokenID {
		t.Fatalf("expected the five newest sessions oldest first, got %d", len(sessions))
	}

	engine.Close()
	if got := len(sink.ofType(auditEventSessionLimitExceeded)); got != 1 {
		t.Fatalf("expected one SESSION_LIMIT_EXCEEDED event, got %d", got)
	}
}

func TestSessionCapConcurrentIssuance(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Token.MaxConcurrentSessions = 3 })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.IssuePair(ctx, "u1", SessionMeta{}); err != nil {
				t.Errorf("IssuePair: %v", err)
			}
		}()
	}
	wg.Wait()

	sessions, _ := engine.ListSessions(ctx, "u1")
	if len(sessions) != 3 {
		t.Fatalf("expected 3 active sessions, got %d", len(sessions))
	}
}

func TestRevokeIsTerminal(t *testing.T) {
	engine, clock := newTestEngine(t, nil)
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	if err := engine.Revoke(ctx, pair.TokenID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := engine.Revoke(ctx, pair.TokenID); err != nil {
		t.Fatalf("second Revoke must succeed: %v", err)
	}
	if _, _, err := engine.VerifyRefresh(ctx, pair.Refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := engine.RefreshAccess(ctx, pair.Refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected refresh to fail with ErrTokenRevoked, got %v", err)
	}

	clock.Advance(engine.config.revokedGrace() + time.Second)
	res, err := engine.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if res.Purged != 1 {
		t.Fatalf("expected one purge, got %+v", res)
	}
	if _, _, err := engine.VerifyRefresh(ctx, pair.Refresh); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after purge, got %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	a, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	b, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	other, _ := engine.IssuePair(ctx, "u2", SessionMeta{})

	n, err := engine.RevokeAll(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 revoked, got %d err=%v", n, err)
	}
	for _, p := range []*TokenPair{a, b} {
		if _, _, err := engine.VerifyRefresh(ctx, p.Refresh); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected revoked, got %v", err)
		}
	}
	if _, _, err := engine.VerifyRefresh(ctx, other.Refresh); err != nil {
		t.Fatalf("other principal must be untouched: %v", err)
	}
}

func TestBlacklistAccess(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	if err := engine.BlacklistAccess(ctx, pair.Access); err != nil {
		t.Fatalf("BlacklistAccess: %v", err)
	}
	if _, err := engine.VerifyAccess(ctx, pair.Access); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
	}
}

func TestSweepRevokesExpiredRecords(t *testing.T) {
	engine, clock := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := engine.IssuePair(ctx, "u1", SessionMeta{}); err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	clock.Advance(engine.config.Token.RefreshTTL + time.Minute)

	res, err := engine.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if res.Revoked != 1 {
		t.Fatalf("expected one expired record revoked, got %+v", res)
	}
	if sessions, _ := engine.ListSessions(ctx, "u1"); len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}
}

func TestTokensWithRedisRegistry(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, clock := newTestEngine(t, func(c *Config) { c.Token.MaxConcurrentSessions = 2 }, withRedis(rdb))
	ctx := context.Background()

	var pairs []*TokenPair
	for i := 0; i < 3; i++ {
		p, err := engine.IssuePair(ctx, "u1", SessionMeta{})
		if err != nil {
			t.Fatalf("IssuePair: %v", err)
		}
		pairs = append(pairs, p)
		clock.Advance(time.Second)
	}

	if _, _, err := engine.VerifyRefresh(ctx, pairs[0].Refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected evicted session revoked, got %v", err)
	}
	if _, err := engine.RefreshAccess(ctx, pairs[2].Refresh); err != nil {
		t.Fatalf("RefreshAccess: %v", err)
	}

	if err := engine.BlacklistAccess(ctx, pairs[2].Access); err != nil {
		t.Fatalf("BlacklistAccess: %v", err)
	}
	if _, err := engine.VerifyAccess(ctx, pairs[2].Access); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
	}
}

func TestVerifyAccessLatencyHistogram(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Metrics.EnableLatencyHistograms = true })
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	for i := 0; i < 3; i++ {
		if _, err := engine.VerifyAccess(ctx, pair.Access); err != nil {
			t.Fatalf("VerifyAccess: %v", err)
		}
	}

	var total uint64
	for _, n := range engine.MetricsSnapshot().Histograms[MetricVerifyLatency] {
		total += n
	}
	if total != 3 {
		t.Fatalf("expected 3 latency observations, got %d", total)
	}
}
