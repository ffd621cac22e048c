package goVault

import (
	"context"

	"github.com/MrEthical07/goVault/internal/flows"
)

// SetupTOTP stores a new, not yet enabled authenticator secret for principalID and
// returns it with an otpauth:// provisioning URI. label defaults to principalID.
// It fails with ErrAlreadyExists while an enabled authenticator is present.
func (e *Engine) SetupTOTP(ctx context.Context, principalID, label string) (*TOTPSetup, error) {
	if !e.ready() || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	return flows.RunSetupTOTP(ctx, principalID, label, e.flows.TOTP)
}

// VerifyTOTP checks code within ±Skew steps. With isSetup set, the first valid code
// enables the authenticator and turns two-factor protection on.
//
// Invalid codes fail with ErrVerificationFailed; repeated failures are throttled
// with ErrTooManyAttempts.
func (e *Engine) VerifyTOTP(ctx context.Context, principalID, code string, isSetup bool) error {
	if !e.ready() || e.totp == nil {
		return ErrEngineNotReady
	}
	return flows.RunVerifyTOTP(ctx, principalID, code, isSetup, e.flows.TOTP)
}
