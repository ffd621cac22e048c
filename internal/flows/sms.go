package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goVault/internal/audit"
	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/store"
	"go.uber.org/zap"
)

const (
	SMSCodeDigits         = 6
	DefaultSMSMaxAttempts = 5
	DefaultSMSTTL         = 10 * time.Minute
)

type SMSMetrics struct {
	SMSIssued  int
	SMSSuccess int
	SMSFailure int
}

type SMSEvents struct {
	SMSIssued   string
	SMSVerified string
	SMSFailed   string
}

type SMSDeps struct {
	MaxAttempts int
	TTL         time.Duration

	Now     func() time.Time
	NewCode func() (string, error)

	PutSMSChallenge    func(context.Context, *store.SMSChallenge) error
	UpdateSMSChallenge func(context.Context, string, store.SMSUpdate) error

	LockPrincipal func(string) func()

	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics SMSMetrics
	Events  SMSEvents
}

// RunIssueSMSChallenge stores a new challenge for the principal, replacing any
// outstanding one, and returns the code for the caller to deliver.
func RunIssueSMSChallenge(ctx context.Context, principalID, phone string, deps SMSDeps) (string, error) {
	normalizeSMSDeps(&deps)

	phone = strings.TrimSpace(phone)
	if principalID == "" || phone == "" {
		return "", fmt.Errorf("%w: empty principal or phone", kinds.ErrInvalidInput)
	}
	if deps.NewCode == nil || deps.PutSMSChallenge == nil {
		return "", fmt.Errorf("%w: sms flow not configured", kinds.ErrInternal)
	}

	code, err := deps.NewCode()
	if err != nil {
		return "", fmt.Errorf("%w: generate sms code: %v", kinds.ErrInternal, err)
	}

	now := deps.Now()
	if err := deps.PutSMSChallenge(ctx, &store.SMSChallenge{
		PrincipalID: principalID,
		Phone:       phone,
		Code:        code,
		ExpiresAt:   now.Add(deps.TTL),
		CreatedAt:   now,
	}); err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.SMSIssued)
	deps.EmitAudit(ctx, deps.Events.SMSIssued, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"phone": audit.MaskPhone(phone)}
	})
	return code, nil
}

// RunVerifySMS applies the challenge rules in order: expiry, reuse, attempt budget,
// then the code itself. The attempt counter moves in the same atomic update as the
// comparison.
func RunVerifySMS(ctx context.Context, principalID, code string, deps SMSDeps) error {
	normalizeSMSDeps(&deps)

	code = strings.TrimSpace(code)
	if principalID == "" || code == "" {
		return fmt.Errorf("%w: empty principal or code", kinds.ErrInvalidInput)
	}
	if deps.UpdateSMSChallenge == nil {
		return fmt.Errorf("%w: sms flow not configured", kinds.ErrInternal)
	}

	unlock := deps.LockPrincipal(principalID)
	defer unlock()

	now := deps.Now()
	var attempts int
	var phone string
	err := deps.UpdateSMSChallenge(ctx, principalID, func(ch *store.SMSChallenge) (bool, error) {
		attempts = ch.Attempts
		phone = ch.Phone
		return checkSMSChallenge(ch, code, now, deps.MaxAttempts)
	})
	if err == nil {
		deps.MetricInc(deps.Metrics.SMSSuccess)
		deps.EmitAudit(ctx, deps.Events.SMSVerified, true, principalID, "", nil, func() map[string]string {
			return map[string]string{"phone": audit.MaskPhone(phone)}
		})
		return nil
	}
	if errors.Is(err, kinds.ErrNotFound) {
		return err
	}

	deps.MetricInc(deps.Metrics.SMSFailure)
	deps.EmitAudit(ctx, deps.Events.SMSFailed, false, principalID, "", err, func() map[string]string {
		return map[string]string{
			"code":     audit.MaskOTP(code),
			"phone":    audit.MaskPhone(phone),
			"attempts": strconv.Itoa(attempts),
		}
	})
	return err
}

func checkSMSChallenge(ch *store.SMSChallenge, code string, now time.Time, maxAttempts int) (bool, error) {
	switch {
	case now.After(ch.ExpiresAt):
		return false, fmt.Errorf("%w: sms challenge expired", kinds.ErrTokenExpired)
	case ch.Used:
		return false, fmt.Errorf("%w: sms challenge already used", kinds.ErrAlreadyUsed)
	case ch.Attempts >= maxAttempts:
		return false, fmt.Errorf("%w: sms attempts exhausted", kinds.ErrTooManyAttempts)
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		ch.Attempts++
		return true, fmt.Errorf("%w: sms code rejected", kinds.ErrVerificationFailed)
	}

	ch.Used = true
	ch.VerifiedAt = now
	return true, nil
}

func normalizeSMSDeps(deps *SMSDeps) {
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = DefaultSMSMaxAttempts
	}
	if deps.TTL <= 0 {
		deps.TTL = DefaultSMSTTL
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
