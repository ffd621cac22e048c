package store

import (
	"context"
	"time"
)

// CredentialStore persists password credentials keyed by principal.
type CredentialStore interface {
	// GetCredential fails with NOT_FOUND when absent.
	GetCredential(ctx context.Context, principalID string) (*Credential, error)
	// CreateCredential fails with ALREADY_EXISTS when the principal has one.
	CreateCredential(ctx context.Context, cred *Credential) error
	// PutCredential overwrites hash and algorithm in one write.
	PutCredential(ctx context.Context, cred *Credential) error
	DeleteCredential(ctx context.Context, principalID string) error
}

// TwoFactorStore persists TOTP secrets, backup codes, SMS challenges and the
// per-principal second-factor state.
type TwoFactorStore interface {
	GetTOTP(ctx context.Context, principalID string) (*TOTPSecret, error)
	PutTOTP(ctx context.Context, secret *TOTPSecret) error
	DeleteTOTP(ctx context.Context, principalID string) error

	ListBackupCodes(ctx context.Context, principalID string) ([]BackupCode, error)
	// ReplaceBackupCodes drops every prior code of the principal, used or not.
	ReplaceBackupCodes(ctx context.Context, principalID string, codes []BackupCode) error
	// MarkBackupCodeUsed flips Used from false to true. It reports false when the
	// code was already used, so two concurrent verifications cannot both win.
	MarkBackupCodeUsed(ctx context.Context, principalID, codeID string, usedAt time.Time) (bool, error)
	DeleteBackupCodes(ctx context.Context, principalID string) error

	// PutSMSChallenge replaces any prior challenge of the principal.
	PutSMSChallenge(ctx context.Context, ch *SMSChallenge) error
	GetSMSChallenge(ctx context.Context, principalID string) (*SMSChallenge, error)
	// UpdateSMSChallenge runs fn atomically against the stored challenge. Missing
	// challenges fail with NOT_FOUND before fn runs.
	UpdateSMSChallenge(ctx context.Context, principalID string, fn SMSUpdate) error
	DeleteSMSChallenge(ctx context.Context, principalID string) error

	GetTwoFactorState(ctx context.Context, principalID string) (*TwoFactorState, error)
	PutTwoFactorState(ctx context.Context, state *TwoFactorState) error
}

// Store is everything the engine persists outside the token registry.
type Store interface {
	CredentialStore
	TwoFactorStore
}
