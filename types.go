package goVault

import (
	"github.com/MrEthical07/goVault/internal/flows"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/session"
)

// SecondFactorMethod names a second-factor kind accepted by [Engine.VerifySecondFactor].
type SecondFactorMethod string

const (
	MethodTOTP       SecondFactorMethod = flows.MethodTOTP
	MethodBackupCode SecondFactorMethod = "BACKUP_CODE"
	MethodSMS        SecondFactorMethod = "SMS"
	// MethodEmail is reserved; verification is not offered.
	MethodEmail SecondFactorMethod = "EMAIL"
)

// TokenPair is a freshly issued access token and its refresh token.
type TokenPair = flows.TokenPair

// RefreshResult is the outcome of [Engine.RefreshAccess]. Refresh is set only when
// rotation retired the presented token.
type RefreshResult = flows.RefreshResult

// CredentialResult reports whether a password matched and whether its stored hash
// was migrated to current parameters.
type CredentialResult = flows.CredentialResult

// TOTPSetup is returned once by [Engine.SetupTOTP]; the secret is not retrievable later.
type TOTPSetup = flows.TOTPSetup

// SessionMeta describes the client obtaining a refresh token.
type SessionMeta = session.Meta

// Session is the server-side record of one refresh token.
type Session = session.Record

// AccessClaims are the verified claims of an access token.
type AccessClaims = jwt.AccessClaims

// RefreshClaims are the verified claims of a refresh token.
type RefreshClaims = jwt.RefreshClaims

// LoginRequest is the input of [Engine.Login]. Method and Code are required only
// when the principal has two-factor protection on.
type LoginRequest struct {
	PrincipalID string
	Password    string

	Method SecondFactorMethod
	Code   string

	Meta SessionMeta
}

// LoginResult is the outcome of a successful [Engine.Login].
type LoginResult struct {
	Tokens *TokenPair

	// Upgraded is set when the stored password hash was migrated during this login.
	Upgraded bool
	// SecondFactor is the method that was verified, empty when none was required.
	SecondFactor SecondFactorMethod

	// BackupCodesRemaining is set when a backup code was consumed.
	BackupCodesRemaining int
}

// SweepResult counts what one maintenance pass did.
type SweepResult = flows.SweepResult
