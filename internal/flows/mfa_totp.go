package flows

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVault/internal/audit"
	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/store"
	"github.com/awnumar/memguard"
	"go.uber.org/zap"
)

// MethodTOTP names the authenticator-app method in two-factor state.
const MethodTOTP = "TOTP"

type TOTPSetup struct {
	Secret string
	URI    string
}

type TOTPMetrics struct {
	TOTPSetup    int
	TOTPSuccess  int
	TOTPFailure  int
	RateLimitHit int
}

type TOTPEvents struct {
	TOTPSetupRequested string
	TOTPEnabled        string
	TOTPSuccess        string
	TOTPFailed         string
	TOTPRateLimited    string
}

type TOTPDeps struct {
	EnforceReplay bool
	Now           func() time.Time

	GetTOTP         func(context.Context, string) (*store.TOTPSecret, error)
	PutTOTP         func(context.Context, *store.TOTPSecret) error
	MarkTwoFactorOn func(context.Context, string, string, time.Time) error

	GenerateSecret func() ([]byte, string, error)
	ProvisionURI   func(string, string) string
	VerifyCode     func([]byte, string, time.Time) (bool, int64, error)

	LockPrincipal func(string) func()
	Limiter       rate.Limiter

	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics TOTPMetrics
	Events  TOTPEvents
}

// RunSetupTOTP stores a new disabled secret and returns it with its provisioning
// URI. A principal whose authenticator is already enabled must disable it first.
func RunSetupTOTP(ctx context.Context, principalID, label string, deps TOTPDeps) (*TOTPSetup, error) {
	normalizeTOTPDeps(&deps)

	if principalID == "" {
		return nil, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.GetTOTP == nil || deps.PutTOTP == nil || deps.GenerateSecret == nil || deps.ProvisionURI == nil {
		return nil, fmt.Errorf("%w: totp flow not configured", kinds.ErrInternal)
	}
	if label == "" {
		label = principalID
	}

	existing, err := deps.GetTOTP(ctx, principalID)
	if err != nil && !errors.Is(err, kinds.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Enabled {
		return nil, fmt.Errorf("%w: totp already enabled", kinds.ErrAlreadyExists)
	}

	raw, secret, err := deps.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: generate totp secret: %v", kinds.ErrInternal, err)
	}
	memguard.WipeBytes(raw)

	if err := deps.PutTOTP(ctx, &store.TOTPSecret{
		PrincipalID: principalID,
		Secret:      secret,
		Enabled:     false,
		CreatedAt:   deps.Now(),
	}); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.TOTPSetup)
	deps.EmitAudit(ctx, deps.Events.TOTPSetupRequested, true, principalID, "", nil, nil)
	return &TOTPSetup{
		Secret: secret,
		URI:    deps.ProvisionURI(secret, label),
	}, nil
}

// RunVerifyTOTP checks code against the principal's secret. With isSetup set, a
// valid code enables the authenticator; otherwise the authenticator must already be
// enabled. With EnforceReplay, an accepted code's time step is recorded and no code
// from that step or an earlier one is accepted again.
func RunVerifyTOTP(ctx context.Context, principalID, code string, isSetup bool, deps TOTPDeps) error {
	normalizeTOTPDeps(&deps)

	if principalID == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: empty principal or code", kinds.ErrInvalidInput)
	}
	if deps.GetTOTP == nil || deps.PutTOTP == nil || deps.VerifyCode == nil {
		return fmt.Errorf("%w: totp flow not configured", kinds.ErrInternal)
	}

	limiterKey := "totp:" + principalID
	if deps.Limiter != nil {
		if err := deps.Limiter.Check(ctx, limiterKey); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				deps.MetricInc(deps.Metrics.RateLimitHit)
				deps.EmitAudit(ctx, deps.Events.TOTPRateLimited, false, principalID, "", err, nil)
			}
			return err
		}
	}

	unlock := deps.LockPrincipal("totp:" + principalID)
	defer unlock()

	rec, err := deps.GetTOTP(ctx, principalID)
	if err != nil {
		return err
	}

	fail := func(reason string) error {
		deps.MetricInc(deps.Metrics.TOTPFailure)
		if deps.Limiter != nil {
			if err := deps.Limiter.RecordFailure(ctx, limiterKey); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				deps.Logger.Warn("totp limiter update failed", zap.String("principal_id", principalID), zap.Error(err))
			}
		}
		deps.EmitAudit(ctx, deps.Events.TOTPFailed, false, principalID, "", kinds.ErrVerificationFailed, func() map[string]string {
			return map[string]string{"code": audit.MaskOTP(code), "reason": reason}
		})
		return fmt.Errorf("%w: totp code rejected", kinds.ErrVerificationFailed)
	}

	if !isSetup && !rec.Enabled {
		return fail("not_enabled")
	}

	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(rec.Secret, "="))
	if err != nil {
		return fmt.Errorf("%w: stored totp secret unreadable", kinds.ErrInternal)
	}
	now := deps.Now()
	ok, counter, err := deps.VerifyCode(secret, code, now)
	memguard.WipeBytes(secret)
	if err != nil {
		return fmt.Errorf("%w: totp verification: %v", kinds.ErrInternal, err)
	}
	if !ok {
		return fail("invalid_code")
	}
	if deps.EnforceReplay && counter <= rec.LastUsedCounter {
		return fail("replayed_code")
	}

	if deps.Limiter != nil {
		_ = deps.Limiter.Reset(ctx, limiterKey)
	}

	enabling := isSetup && !rec.Enabled
	if deps.EnforceReplay || enabling {
		if deps.EnforceReplay {
			rec.LastUsedCounter = counter
		}
		if enabling {
			rec.Enabled = true
			rec.VerifiedAt = now
		}
		if err := deps.PutTOTP(ctx, rec); err != nil {
			return err
		}
	}
	deps.MetricInc(deps.Metrics.TOTPSuccess)

	if !enabling {
		deps.EmitAudit(ctx, deps.Events.TOTPSuccess, true, principalID, "", nil, nil)
		return nil
	}
	if deps.MarkTwoFactorOn != nil {
		if err := deps.MarkTwoFactorOn(ctx, principalID, MethodTOTP, now); err != nil {
			return err
		}
	}
	deps.EmitAudit(ctx, deps.Events.TOTPEnabled, true, principalID, "", nil, nil)
	return nil
}

func normalizeTOTPDeps(deps *TOTPDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.LockPrincipal == nil {
		deps.LockPrincipal = func(string) func() { return func() {} }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
