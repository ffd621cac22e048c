package goVault

import (
	"context"
	"testing"
	"time"
)

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricVerifyLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestEngineCountersFollowOperations(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustRegister(t, engine, "u1", "correct-horse")
	_, _ = engine.Login(ctx, LoginRequest{PrincipalID: "u1", Password: "wrong-horse"})
	res, err := engine.Login(ctx, LoginRequest{PrincipalID: "u1", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, _ = engine.VerifyAccess(ctx, res.Tokens.Access)
	_, _ = engine.VerifyAccess(ctx, "not-a-token")
	_, _ = engine.RefreshAccess(ctx, res.Tokens.Refresh)

	shares, err := engine.SplitSecret([]byte("vault key"), 3, 2)
	if err != nil {
		t.Fatalf("SplitSecret: %v", err)
	}
	if _, err := engine.CombineSecret([]string{shares[0].Payload, shares[2].Payload}); err != nil {
		t.Fatalf("CombineSecret: %v", err)
	}

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricRegisterSuccess: 1,
		MetricLoginFailure:    1,
		MetricLoginSuccess:    1,
		MetricTokenIssued:     1,
		MetricAccessVerified:  1,
		MetricAccessRejected:  1,
		MetricRefreshSuccess:  1,
		MetricSecretSplit:     1,
		MetricSecretCombined:  1,
	}
	for id, n := range want {
		if snap.Counters[id] != n {
			t.Fatalf("metric %d: expected %d, got %d", id, n, snap.Counters[id])
		}
	}
}

func TestMetricsDisabledEngine(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) { c.Metrics.Enabled = false })
	mustRegister(t, engine, "u1", "correct-horse")

	for id, n := range engine.MetricsSnapshot().Counters {
		if n != 0 {
			t.Fatalf("metric %d counted %d with metrics disabled", id, n)
		}
	}
}

func TestNilEngineMetricsSnapshot(t *testing.T) {
	var engine *Engine
	snap := engine.MetricsSnapshot()
	if snap.Counters == nil || snap.Histograms == nil {
		t.Fatal("expected empty maps from nil engine")
	}
}
