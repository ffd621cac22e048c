package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goVault/internal"
	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type registryFactory func(t *testing.T, now time.Time) Registry

func registryImpls() map[string]registryFactory {
	return map[string]registryFactory{
		"memory": func(t *testing.T, _ time.Time) Registry {
			return NewMemoryRegistry()
		},
		"redis": func(t *testing.T, now time.Time) Registry {
			t.Helper()
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis start: %v", err)
			}
			// key expiry in miniredis follows its own clock
			mr.SetTime(now)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				rdb.Close()
				mr.Close()
			})
			return NewRedisRegistry(rdb, "test")
		},
	}
}

func testRecord(tokenID, principalID string, issued time.Time) *Record {
	return &Record{
		TokenID:     tokenID,
		PrincipalID: principalID,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(time.Hour),
		Meta:        Meta{IP: "203.0.113.7", UserAgent: "test-agent"},
	}
}

func TestRegistryInsertAndTouch(t *testing.T) {
	for name, factory := range registryImpls() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)
			reg := factory(t, now)

			if err := reg.Insert(ctx, testRecord("t1", "u1", now)); err != nil {
				t.Fatalf("insert: %v", err)
			}
			if err := reg.Insert(ctx, testRecord("t1", "u1", now)); !errors.Is(err, kinds.ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}

			rec, err := reg.Touch(ctx, "t1", "u1", now.Add(time.Minute), time.Minute)
			if err != nil {
				t.Fatalf("touch: %v", err)
			}
			if !rec.LastUsedAt.Equal(now.Add(time.Minute)) {
				t.Fatalf("expected lastUsedAt to advance, got %s", rec.LastUsedAt)
			}
			if rec.Meta.UserAgent != "test-agent" || !rec.Active() {
				t.Fatalf("unexpected record: %+v", rec)
			}
			if rec.IssuedAt.After(rec.LastUsedAt) || rec.LastUsedAt.After(rec.ExpiresAt) {
				t.Fatalf("timestamp ordering violated: %+v", rec)
			}

			if _, err := reg.Touch(ctx, "t1", "u2", now, time.Minute); !errors.Is(err, kinds.ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid for principal mismatch, got %v", err)
			}
			if _, err := reg.Touch(ctx, "missing", "u1", now, time.Minute); !errors.Is(err, kinds.ErrTokenNotFound) {
				t.Fatalf("expected ErrTokenNotFound, got %v", err)
			}
		})
	}
}

func TestRegistryRevokeIsTerminal(t *testing.T) {
	for name, factory := range registryImpls() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)
			reg := factory(t, now)

			if err := reg.Insert(ctx, testRecord("t1", "u1", now)); err != nil {
				t.Fatalf("insert: %v", err)
			}

			changed, err := reg.Revoke(ctx, "t1", now, 15*time.Minute, ReasonUser)
			if err != nil || !changed {
				t.Fatalf("revoke: changed=%v err=%v", changed, err)
			}
			changed, err = reg.Revoke(ctx, "t1", now, 15*time.Minute, ReasonUser)
			if err != nil || changed {
				t.Fatalf("second revoke should be a no-op: changed=%v err=%v", changed, err)
			}

			if _, err := reg.Touch(ctx, "t1", "u1", now.Add(time.Minute), time.Minute); !errors.Is(err, kinds.ErrTokenRevoked) {
				t.Fatalf("expected ErrTokenRevoked, got %v", err)
			}
			rec, err := reg.Get(ctx, "t1", now.Add(time.Minute))
			if err != nil {
				t.Fatalf("get revoked: %v", err)
			}
			if rec.State != StateRevoked || rec.RevokeReason != ReasonUser {
				t.Fatalf("unexpected revoked record: %+v", rec)
			}

			active, err := reg.ListActive(ctx, "u1")
			if err != nil {
				t.Fatalf("list active: %v", err)
			}
			if len(active) != 0 {
				t.Fatalf("expected empty index after revoke, got %d", len(active))
			}

			later := now.Add(16 * time.Minute)
			purged, err := reg.Purge(ctx, later)
			if err != nil {
				t.Fatalf("purge: %v", err)
			}
			if purged != 1 {
				t.Fatalf("expected one purged record, got %d", purged)
			}
			if _, err := reg.Touch(ctx, "t1", "u1", later, time.Minute); !errors.Is(err, kinds.ErrTokenNotFound) {
				t.Fatalf("expected ErrTokenNotFound after purge, got %v", err)
			}
		})
	}
}

func TestRegistryTouchRevokesExpired(t *testing.T) {
	for name, factory := range registryImpls() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)
			reg := factory(t, now)

			if err := reg.Insert(ctx, testRecord("t1", "u1", now)); err != nil {
				t.Fatalf("insert: %v", err)
			}

			expired, err := reg.ExpiredActive(ctx, now.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("expired active: %v", err)
			}
			if len(expired) != 1 || expired[0] != "t1" {
				t.Fatalf("expected t1 in expired set, got %v", expired)
			}

			if _, err := reg.Touch(ctx, "t1", "u1", now.Add(2*time.Hour), 15*time.Minute); !errors.Is(err, kinds.ErrTokenExpired) {
				t.Fatalf("expected ErrTokenExpired, got %v", err)
			}
			if _, err := reg.Touch(ctx, "t1", "u1", now.Add(2*time.Hour), 15*time.Minute); !errors.Is(err, kinds.ErrTokenRevoked) {
				t.Fatalf("expected ErrTokenRevoked once expiry revoked the record, got %v", err)
			}
			expired, err = reg.ExpiredActive(ctx, now.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("expired active: %v", err)
			}
			if len(expired) != 0 {
				t.Fatalf("expected no active expired records, got %v", expired)
			}
		})
	}
}

func TestRegistryListActiveOrdersByIssue(t *testing.T) {
	for name, factory := range registryImpls() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().Truncate(time.Millisecond)
			reg := factory(t, now)

			// identical issue times fall back to insertion order
			for i := 0; i < 4; i++ {
				if err := reg.Insert(ctx, testRecord(fmt.Sprintf("t%d", i), "u1", now)); err != nil {
					t.Fatalf("insert: %v", err)
				}
			}
			if err := reg.Insert(ctx, testRecord("early", "u1", now.Add(-time.Minute))); err != nil {
				t.Fatalf("insert: %v", err)
			}
			if err := reg.Insert(ctx, testRecord("other", "u2", now)); err != nil {
				t.Fatalf("insert: %v", err)
			}

			active, err := reg.ListActive(ctx, "u1")
			if err != nil {
				t.Fatalf("list active: %v", err)
			}
			want := []string{"early", "t0", "t1", "t2", "t3"}
			if len(active) != len(want) {
				t.Fatalf("expected %d records, got %d", len(want), len(active))
			}
			for i, rec := range active {
				if rec.TokenID != want[i] {
					t.Fatalf("position %d: want %s got %s", i, want[i], rec.TokenID)
				}
			}
		})
	}
}

func TestBlacklists(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	impls := map[string]Blacklist{
		"cache": NewCacheBlacklist(time.Minute, time.Minute),
		"redis": NewRedisBlacklist(rdb, "test"),
	}
	for name, bl := range impls {
		ctx := context.Background()
		if err := bl.Add(ctx, "header.claims.sig", time.Minute); err != nil {
			t.Fatalf("%s add: %v", name, err)
		}
		found, err := bl.Contains(ctx, "header.claims.sig")
		if err != nil || !found {
			t.Fatalf("%s: expected token to be blacklisted: found=%v err=%v", name, found, err)
		}
		found, err = bl.Contains(ctx, "other.claims.sig")
		if err != nil || found {
			t.Fatalf("%s: expected unrelated token to pass: found=%v err=%v", name, found, err)
		}
	}

	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "test:bl:"+internal.TokenDigest("header.claims.sig") {
		t.Fatalf("expected digest-keyed entry, got %v", keys)
	}
	mr.FastForward(2 * time.Minute)
	if found, _ := impls["redis"].Contains(context.Background(), "header.claims.sig"); found {
		t.Fatal("expected redis entry to expire with its TTL")
	}
}
