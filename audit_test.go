package goVault

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine, _ := newTestEngine(t, func(c *Config) { c.Audit.Enabled = false }, withSink(sink))
	ctx := context.Background()

	mustRegister(t, engine, "u1", "correct-horse")
	_, _ = engine.Login(ctx, LoginRequest{PrincipalID: "u1", Password: "wrong-password"})
	engine.Close()

	if n := sink.count.Load(); n != 0 {
		t.Fatalf("expected no sink calls when audit is disabled, got %d", n)
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("disabled dispatcher must not count drops")
	}
}

func TestAuditEventFields(t *testing.T) {
	sink := &recordingSink{}
	engine, clock := newTestEngine(t, nil, withSink(sink))
	ctx := WithClientIP(context.Background(), "198.51.100.33")

	mustRegister(t, engine, "u1", "correct-horse")
	res, err := engine.Login(ctx, LoginRequest{PrincipalID: "u1", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	engine.Close()

	events := sink.ofType(auditEventLoginSuccess)
	if len(events) != 1 {
		t.Fatalf("expected one login_success event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID == "" || ev.PrincipalID != "u1" || ev.TokenID != res.Tokens.TokenID {
		t.Fatalf("unexpected identifiers: %+v", ev)
	}
	if ev.IP != "198.51.100.33" || !ev.Success || ev.Severity != SeverityInfo {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if !ev.Timestamp.Equal(clock.Now().UTC()) {
		t.Fatalf("expected timestamp from engine clock, got %v", ev.Timestamp)
	}
}

func TestAuditRevokedRefreshIsCritical(t *testing.T) {
	sink := &recordingSink{}
	engine, _ := newTestEngine(t, nil, withSink(sink))
	ctx := context.Background()

	pair, _ := engine.IssuePair(ctx, "u1", SessionMeta{})
	if err := engine.Revoke(ctx, pair.TokenID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	_, _ = engine.RefreshAccess(ctx, pair.Refresh)
	engine.Close()

	failed := sink.ofType(auditEventTokenRefreshFailed)
	if len(failed) != 1 {
		t.Fatalf("expected one refresh failure event, got %d", len(failed))
	}
	if failed[0].Severity != SeverityCritical || failed[0].Error != string(KindTokenRevoked) {
		t.Fatalf("expected critical TOKEN_REVOKED event, got %+v", failed[0])
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	var buf lockedBuffer
	engine, clock := newTestEngine(t, nil, withSink(NewJSONWriterSink(&buf)))
	ctx := context.Background()

	const pw = "correct-horse-battery"
	mustRegister(t, engine, "u1", pw)
	res, err := engine.Login(ctx, LoginRequest{PrincipalID: "u1", Password: pw})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := engine.RefreshAccess(ctx, res.Tokens.Refresh); err != nil {
		t.Fatalf("RefreshAccess: %v", err)
	}

	setup, _ := engine.SetupTOTP(ctx, "u1", "")
	code, _ := TOTPCode(setup.Secret, clock.Now())
	_ = engine.VerifyTOTP(ctx, "u1", code, true)
	codes, _ := engine.GenerateBackupCodes(ctx, "u1")
	smsCode, _ := engine.IssueSMSChallenge(ctx, "u1", "+1 555 0100 4242")
	_ = engine.VerifySMS(ctx, "u1", "999999")
	engine.Close()

	out := buf.String()
	if !strings.Contains(out, `"principal_id":"u1"`) {
		t.Fatalf("expected JSON lines with principal id, got %q", out)
	}
	needles := []string{pw, res.Tokens.Refresh, res.Tokens.Access, setup.Secret, code, smsCode, "+1 555 0100"}
	needles = append(needles, codes...)
	for _, needle := range needles {
		if needle != "" && strings.Contains(out, needle) {
			t.Fatalf("audit output leaked %q", needle)
		}
	}
}

func TestZapSinkIsAcceptedAsAuditSink(t *testing.T) {
	sink := NewZapSink(nil)
	engine, _ := newTestEngine(t, nil, withSink(sink))
	mustRegister(t, engine, "u1", "correct-horse")
	engine.Close()
	engine.Close()
}
