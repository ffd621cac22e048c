package goVault

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/flows"
)

// TwoFactorEnabled reports whether the principal's most recent second-factor change
// turned protection on.
func (e *Engine) TwoFactorEnabled(ctx context.Context, principalID string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	return flows.RunTwoFactorEnabled(ctx, principalID, e.flows.TwoFactor)
}

// DisableTwoFactor deletes the principal's TOTP secret, backup codes and SMS
// challenge and turns protection off.
func (e *Engine) DisableTwoFactor(ctx context.Context, principalID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunDisableTwoFactor(ctx, principalID, e.flows.TwoFactor)
}

// VerifySecondFactor dispatches code to the verifier of method. The int result is
// the number of unused backup codes left and is zero for other methods.
func (e *Engine) VerifySecondFactor(ctx context.Context, principalID string, method SecondFactorMethod, code string) (int, error) {
	switch method {
	case MethodTOTP:
		return 0, e.VerifyTOTP(ctx, principalID, code, false)
	case MethodBackupCode:
		return e.VerifyBackupCode(ctx, principalID, code)
	case MethodSMS:
		return 0, e.VerifySMS(ctx, principalID, code)
	case MethodEmail:
		return 0, fmt.Errorf("%w: email second factor not offered", ErrInvalidInput)
	default:
		return 0, fmt.Errorf("%w: unknown second factor %q", ErrInvalidInput, method)
	}
}

func (e *Engine) markTwoFactorOn(ctx context.Context, principalID, method string, at time.Time) error {
	return flows.RunMarkTwoFactorEnabled(ctx, principalID, method, at, e.flows.TwoFactor)
}
