package goVault

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var backupCodePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestGenerateBackupCodesShape(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	codes, err := engine.GenerateBackupCodes(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("expected 10 codes, got %d", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		if !backupCodePattern.MatchString(c) {
			t.Fatalf("code %q is not 8 uppercase hex chars", c)
		}
		if seen[c] {
			t.Fatalf("duplicate code %q", c)
		}
		seen[c] = true
	}
}

func TestBackupCodeIsOneShot(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	codes, _ := engine.GenerateBackupCodes(ctx, "u1")
	remaining, err := engine.VerifyBackupCode(ctx, "u1", codes[3])
	if err != nil {
		t.Fatalf("VerifyBackupCode: %v", err)
	}
	if remaining != 9 {
		t.Fatalf("expected 9 remaining, got %d", remaining)
	}
	if _, err := engine.VerifyBackupCode(ctx, "u1", codes[3]); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}

	// lower case input is accepted
	if _, err := engine.VerifyBackupCode(ctx, "u1", strings.ToLower(codes[4])); err != nil {
		t.Fatalf("expected lower-case code to verify: %v", err)
	}
}

func TestBackupCodeConcurrentUseSingleWinner(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	codes, _ := engine.GenerateBackupCodes(ctx, "u1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.VerifyBackupCode(ctx, "u1", codes[0]); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful use, got %d", wins)
	}
}

func TestRegenerateInvalidatesPriorCodes(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	first, _ := engine.GenerateBackupCodes(ctx, "u1")
	second, err := engine.GenerateBackupCodes(ctx, "u1")
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}

	if _, err := engine.VerifyBackupCode(ctx, "u1", first[0]); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
	if _, err := engine.VerifyBackupCode(ctx, "u1", second[0]); err != nil {
		t.Fatalf("expected new code accepted: %v", err)
	}
}

func TestBackupCodesLowWatermark(t *testing.T) {
	sink := &recordingSink{}
	engine, _ := newTestEngine(t, func(c *Config) {
		c.TwoFactor.BackupCodeCount = 4
		c.TwoFactor.BackupCodeLowWatermark = 2
	}, withSink(sink))
	ctx := context.Background()

	codes, _ := engine.GenerateBackupCodes(ctx, "u1")
	if len(codes) != 4 {
		t.Fatalf("expected 4 codes, got %d", len(codes))
	}
	for i, c := range codes {
		remaining, err := engine.VerifyBackupCode(ctx, "u1", c)
		if err != nil {
			t.Fatalf("code %d: %v", i, err)
		}
		if remaining != len(codes)-i-1 {
			t.Fatalf("code %d: expected %d remaining, got %d", i, len(codes)-i-1, remaining)
		}
	}
	engine.Close()

	low := sink.ofType(auditEventBackupCodesLow)
	if len(low) != 3 {
		t.Fatalf("expected low events at 2, 1 and 0 remaining, got %d", len(low))
	}
	if low[0].Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", low[0].Severity)
	}
}

func TestBackupCodeRateLimit(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	codes, _ := engine.GenerateBackupCodes(ctx, "u1")

	for i := 0; i < engine.config.TwoFactor.MaxVerifyAttempts; i++ {
		if _, err := engine.VerifyBackupCode(ctx, "u1", "ZZZZZZZZ"); !errors.Is(err, ErrVerificationFailed) {
			t.Fatalf("attempt %d: expected ErrVerificationFailed, got %v", i, err)
		}
	}
	if _, err := engine.VerifyBackupCode(ctx, "u1", codes[0]); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestVerifyBackupCodeWithoutCodes(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	if _, err := engine.VerifyBackupCode(context.Background(), "u1", "ABCDEF01"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if _, err := engine.VerifyBackupCode(context.Background(), "u1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
