// Package kinds defines the closed set of stable error identifiers shared by every
// goVault component. Sub-packages wrap these sentinels with context; the root package
// re-exports them for callers.
package kinds

import "errors"

// Kind is a stable, language-neutral error identifier.
type Kind string

const (
	InvalidInput       Kind = "INVALID_INPUT"
	NotFound           Kind = "NOT_FOUND"
	AlreadyExists      Kind = "ALREADY_EXISTS"
	AlreadyUsed        Kind = "ALREADY_USED"
	Expired            Kind = "EXPIRED"
	TooManyAttempts    Kind = "TOO_MANY_ATTEMPTS"
	TokenMalformed     Kind = "TOKEN_MALFORMED"
	TokenInvalid       Kind = "TOKEN_INVALID"
	TokenExpired       Kind = "TOKEN_EXPIRED"
	TokenBlacklisted   Kind = "TOKEN_BLACKLISTED"
	TokenRevoked       Kind = "TOKEN_REVOKED"
	TokenNotFound      Kind = "TOKEN_NOT_FOUND"
	VerificationFailed Kind = "VERIFICATION_FAILED"
	NotInitialized     Kind = "NOT_INITIALIZED"
	Internal           Kind = "INTERNAL"
)

// Error is the sentinel type behind every kind.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind returns the stable identifier.
func (e *Error) Kind() Kind { return e.kind }

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

var (
	ErrInvalidInput       = newError(InvalidInput, "invalid input")
	ErrNotFound           = newError(NotFound, "not found")
	ErrAlreadyExists      = newError(AlreadyExists, "already exists")
	ErrAlreadyUsed        = newError(AlreadyUsed, "already used")
	ErrExpired            = newError(Expired, "expired")
	ErrTooManyAttempts    = newError(TooManyAttempts, "too many attempts")
	ErrTokenMalformed     = newError(TokenMalformed, "token malformed")
	ErrTokenInvalid       = newError(TokenInvalid, "token invalid")
	ErrTokenExpired       = newError(TokenExpired, "token expired")
	ErrTokenBlacklisted   = newError(TokenBlacklisted, "token blacklisted")
	ErrTokenRevoked       = newError(TokenRevoked, "token revoked")
	ErrTokenNotFound      = newError(TokenNotFound, "token not found")
	ErrVerificationFailed = newError(VerificationFailed, "verification failed")
	ErrNotInitialized     = newError(NotInitialized, "not initialized")
	ErrInternal           = newError(Internal, "internal error")
)

// Of returns the kind carried by err. Nil yields "", any error outside the closed set
// yields Internal.
func Of(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Internal
}
