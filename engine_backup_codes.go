package goVault

import (
	"context"

	"github.com/MrEthical07/goVault/internal/flows"
)

// GenerateBackupCodes replaces every prior backup code of the principal with a new
// batch of TwoFactor.BackupCodeCount codes. The plaintext codes are returned only
// here; the store keeps argon2id hashes.
func (e *Engine) GenerateBackupCodes(ctx context.Context, principalID string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunGenerateBackupCodes(ctx, principalID, e.flows.BackupCodes)
}

// VerifyBackupCode consumes a matching unused code and returns how many unused
// codes remain. A code verifies at most once.
func (e *Engine) VerifyBackupCode(ctx context.Context, principalID, code string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return flows.RunVerifyBackupCode(ctx, principalID, code, e.flows.BackupCodes)
}
