package goVault

import (
	"context"

	"github.com/MrEthical07/goVault/internal/flows"
)

// IssueSMSChallenge creates the principal's single outstanding SMS challenge and
// returns the 6-digit code. Delivering it to phone is the caller's job.
func (e *Engine) IssueSMSChallenge(ctx context.Context, principalID, phone string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return flows.RunIssueSMSChallenge(ctx, principalID, phone, e.flows.SMS)
}

// VerifySMS checks code against the outstanding challenge. The checks run in
// order: ErrTokenExpired, ErrAlreadyUsed, ErrTooManyAttempts, then
// ErrVerificationFailed on mismatch (which spends an attempt).
func (e *Engine) VerifySMS(ctx context.Context, principalID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunVerifySMS(ctx, principalID, code, e.flows.SMS)
}
