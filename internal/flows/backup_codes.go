package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/store"
	"go.uber.org/zap"
)

const (
	DefaultBackupCodeCount   = 10
	BackupCodeLength         = 8
	DefaultBackupCodeLowMark = 2
)

type BackupCodeMetrics struct {
	BackupCodeGenerated int
	BackupCodeUsed      int
	BackupCodeFailed    int
	RateLimitHit        int
}

type BackupCodeEvents struct {
	BackupCodesGenerated string
	BackupCodeUsed       string
	BackupCodeFailed     string
	BackupCodesLow       string
}

type BackupCodeDeps struct {
	Count   int
	LowMark int

	Now       func() time.Time
	NewCode   func() (string, error)
	NewCodeID func() string

	HashCode   func(context.Context, string) (string, error)
	VerifyCode func(context.Context, string, string) (bool, error)

	ListBackupCodes    func(context.Context, string) ([]store.BackupCode, error)
	ReplaceBackupCodes func(context.Context, string, []store.BackupCode) error
	MarkBackupCodeUsed func(context.Context, string, string, time.Time) (bool, error)

	LockPrincipal func(string) func()
	Limiter       rate.Limiter

	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics BackupCodeMetrics
	Events  BackupCodeEvents
}

// RunGenerateBackupCodes replaces every prior code of the principal with a fresh
// batch and returns the plaintext codes. This is the only time they are visible.
func RunGenerateBackupCodes(ctx context.Context, principalID string, deps BackupCodeDeps) ([]string, error) {
	normalizeBackupCodeDeps(&deps)

	if principalID == "" {
		return nil, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.NewCode == nil || deps.NewCodeID == nil || deps.HashCode == nil || deps.ReplaceBackupCodes == nil {
		return nil, fmt.Errorf("%w: backup code flow not configured", kinds.ErrInternal)
	}

	now := deps.Now()
	plain := make([]string, 0, deps.Count)
	records := make([]store.BackupCode, 0, deps.Count)
	for len(plain) < deps.Count {
		code, err := deps.NewCode()
		if err != nil {
			return nil, fmt.Errorf("%w: generate backup code: %v", kinds.ErrInternal, err)
		}
		if containsString(plain, code) {
			continue
		}
		hash, err := deps.HashCode(ctx, code)
		if err != nil {
			return nil, err
		}
		plain = append(plain, code)
		records = append(records, store.BackupCode{
			ID:          deps.NewCodeID(),
			PrincipalID: principalID,
			Hash:        hash,
			CreatedAt:   now,
		})
	}

	unlock := deps.LockPrincipal(principalID)
	defer unlock()

	if err := deps.ReplaceBackupCodes(ctx, principalID, records); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.BackupCodeGenerated)
	deps.EmitAudit(ctx, deps.Events.BackupCodesGenerated, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(len(plain))}
	})
	return plain, nil
}

// RunVerifyBackupCode consumes a matching unused code and returns how many unused
// codes remain. Every unused code is checked so timing does not reveal which one
// matched.
func RunVerifyBackupCode(ctx context.Context, principalID, code string, deps BackupCodeDeps) (int, error) {
	normalizeBackupCodeDeps(&deps)

	candidate := NormalizeBackupCode(code)
	if principalID == "" || candidate == "" {
		return 0, fmt.Errorf("%w: empty principal or code", kinds.ErrInvalidInput)
	}
	if deps.VerifyCode == nil || deps.ListBackupCodes == nil || deps.MarkBackupCodeUsed == nil {
		return 0, fmt.Errorf("%w: backup code flow not configured", kinds.ErrInternal)
	}

	limiterKey := "backup:" + principalID
	if deps.Limiter != nil {
		if err := deps.Limiter.Check(ctx, limiterKey); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				deps.MetricInc(deps.Metrics.RateLimitHit)
			}
			return 0, err
		}
	}

	unlock := deps.LockPrincipal(principalID)
	defer unlock()

	codes, err := deps.ListBackupCodes(ctx, principalID)
	if err != nil {
		return 0, err
	}

	matchID := ""
	unused := 0
	for _, c := range codes {
		if c.Used {
			continue
		}
		unused++
		ok, err := deps.VerifyCode(ctx, candidate, c.Hash)
		if err != nil {
			return 0, err
		}
		if ok && matchID == "" {
			matchID = c.ID
		}
	}

	fail := func() (int, error) {
		deps.MetricInc(deps.Metrics.BackupCodeFailed)
		if deps.Limiter != nil {
			if err := deps.Limiter.RecordFailure(ctx, limiterKey); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				deps.Logger.Warn("backup code limiter update failed", zap.String("principal_id", principalID), zap.Error(err))
			}
		}
		deps.EmitAudit(ctx, deps.Events.BackupCodeFailed, false, principalID, "", kinds.ErrVerificationFailed, nil)
		return 0, fmt.Errorf("%w: backup code rejected", kinds.ErrVerificationFailed)
	}

	if matchID == "" {
		return fail()
	}
	marked, err := deps.MarkBackupCodeUsed(ctx, principalID, matchID, deps.Now())
	if err != nil {
		return 0, err
	}
	if !marked {
		// lost the race against another verification of the same code
		return fail()
	}

	if deps.Limiter != nil {
		_ = deps.Limiter.Reset(ctx, limiterKey)
	}

	remaining := unused - 1
	deps.MetricInc(deps.Metrics.BackupCodeUsed)
	deps.EmitAudit(ctx, deps.Events.BackupCodeUsed, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"remaining": strconv.Itoa(remaining)}
	})
	if remaining <= deps.LowMark {
		deps.EmitAudit(ctx, deps.Events.BackupCodesLow, true, principalID, "", nil, func() map[string]string {
			return map[string]string{"remaining": strconv.Itoa(remaining)}
		})
	}
	return remaining, nil
}

// NormalizeBackupCode uppercases a code and drops spaces and dashes users tend to
// type.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func normalizeBackupCodeDeps(deps *BackupCodeDeps) {
	if deps.Count <= 0 {
		deps.Count = DefaultBackupCodeCount
	}
	if deps.LowMark < 0 {
		deps.LowMark = DefaultBackupCodeLowMark
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LockPrincipal == nil {
		deps.LockPrincipal = func(string) func() { return func() {} }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
