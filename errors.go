package goVault

import (
	"fmt"

	"github.com/MrEthical07/goVault/internal/kinds"
)

// Kind is the stable identifier carried by every error the engine returns.
type Kind = kinds.Kind

const (
	KindInvalidInput       = kinds.InvalidInput
	KindNotFound           = kinds.NotFound
	KindAlreadyExists      = kinds.AlreadyExists
	KindAlreadyUsed        = kinds.AlreadyUsed
	KindExpired            = kinds.Expired
	KindTooManyAttempts    = kinds.TooManyAttempts
	KindTokenMalformed     = kinds.TokenMalformed
	KindTokenInvalid       = kinds.TokenInvalid
	KindTokenExpired       = kinds.TokenExpired
	KindTokenBlacklisted   = kinds.TokenBlacklisted
	KindTokenRevoked       = kinds.TokenRevoked
	KindTokenNotFound      = kinds.TokenNotFound
	KindVerificationFailed = kinds.VerificationFailed
	KindNotInitialized     = kinds.NotInitialized
	KindInternal           = kinds.Internal
)

var (
	// ErrInvalidInput reports a malformed or out-of-range argument.
	ErrInvalidInput = kinds.ErrInvalidInput
	// ErrNotFound reports a missing principal, credential or record.
	ErrNotFound = kinds.ErrNotFound
	// ErrAlreadyExists reports a duplicate credential or identifier.
	ErrAlreadyExists = kinds.ErrAlreadyExists
	// ErrAlreadyUsed reports a consumed one-time code.
	ErrAlreadyUsed = kinds.ErrAlreadyUsed
	// ErrExpired reports a lapsed proof or challenge.
	ErrExpired = kinds.ErrExpired
	// ErrTooManyAttempts reports an exhausted attempt budget.
	ErrTooManyAttempts = kinds.ErrTooManyAttempts
	// ErrTokenMalformed reports a token that could not be decoded.
	ErrTokenMalformed = kinds.ErrTokenMalformed
	// ErrTokenInvalid reports a bad signature or claim.
	ErrTokenInvalid = kinds.ErrTokenInvalid
	// ErrTokenExpired reports a token past its exp claim.
	ErrTokenExpired = kinds.ErrTokenExpired
	// ErrTokenBlacklisted reports a revoked access token.
	ErrTokenBlacklisted = kinds.ErrTokenBlacklisted
	// ErrTokenRevoked reports a revoked refresh token.
	ErrTokenRevoked = kinds.ErrTokenRevoked
	// ErrTokenNotFound reports an unknown or purged refresh token.
	ErrTokenNotFound = kinds.ErrTokenNotFound
	// ErrVerificationFailed reports a wrong password or second-factor code.
	ErrVerificationFailed = kinds.ErrVerificationFailed
	// ErrNotInitialized reports use of the commitment engine before Init.
	ErrNotInitialized = kinds.ErrNotInitialized
	// ErrInternal reports a backend or programming failure.
	ErrInternal = kinds.ErrInternal

	// ErrEngineNotReady is returned by methods on an Engine that was not produced by Build.
	ErrEngineNotReady = fmt.Errorf("%w: engine not initialized", kinds.ErrInternal)

	// ErrSecondFactorRequired is returned by Login when the principal has two-factor
	// protection on and no code was supplied. It matches ErrVerificationFailed.
	ErrSecondFactorRequired = fmt.Errorf("%w: second factor required", kinds.ErrVerificationFailed)
)

// KindOf returns the stable identifier carried by err: empty for nil and
// INTERNAL for errors that do not wrap one of the sentinels above.
func KindOf(err error) Kind {
	return kinds.Of(err)
}
