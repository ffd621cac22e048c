package goVault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goVault/internal/flows"
	"github.com/MrEthical07/goVault/internal/kinds"
)

// Register stores an argon2id hash of pw for principalID. It fails with
// ErrAlreadyExists when the principal already has a credential and with
// ErrInvalidInput when pw is empty or shorter than Password.MinLength code points.
func (e *Engine) Register(ctx context.Context, principalID, pw string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunRegister(ctx, principalID, pw, e.flows.Credentials)
}

// VerifyAndUpgrade checks pw against the stored credential.
//
// An unknown principal yields ErrNotFound, a wrong password yields
// CredentialResult{Valid: false} and a nil error. Callers that face end users
// must not surface the difference; [Engine.Login] coalesces both.
//
// On success a legacy (bcrypt, argon2i) or outdated argon2id hash is replaced with
// one produced from current parameters. A failed replacement is logged and the
// result stays valid.
func (e *Engine) VerifyAndUpgrade(ctx context.Context, principalID, pw string) (CredentialResult, error) {
	if !e.ready() {
		return CredentialResult{}, ErrEngineNotReady
	}
	return flows.RunVerifyAndUpgrade(ctx, principalID, pw, e.flows.Credentials)
}

// ChangePassword verifies oldPassword with the stored algorithm, writes an argon2id
// hash of newPassword and revokes every refresh token of the principal.
func (e *Engine) ChangePassword(ctx context.Context, principalID, oldPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, principalID, oldPassword, newPassword, e.flows.Credentials)
}

// DeleteCredential destroys the principal's credential, sessions and
// second-factor material.
func (e *Engine) DeleteCredential(ctx context.Context, principalID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunDeleteCredential(ctx, principalID, e.flows.Credentials)
}

// Login verifies the password, then the second factor when the principal has one
// enabled, and issues a token pair.
//
// Every authentication failure is reported as ErrVerificationFailed so callers
// cannot tell an unknown principal from a wrong password or code. A principal
// with two-factor on who supplies no code gets ErrSecondFactorRequired, which also
// matches ErrVerificationFailed. Throttling (ErrTooManyAttempts) and backend
// failures pass through.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := flows.RunVerifyAndUpgrade(ctx, req.PrincipalID, req.Password, e.flows.Credentials)
	if err != nil {
		return nil, coalesceAuthError(err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: invalid credentials", ErrVerificationFailed)
	}

	out := &LoginResult{Upgraded: res.Upgraded}

	enabled, err := e.TwoFactorEnabled(ctx, req.PrincipalID)
	if err != nil {
		return nil, err
	}
	if enabled {
		if req.Method == "" || req.Code == "" {
			return nil, ErrSecondFactorRequired
		}
		remaining, err := e.VerifySecondFactor(ctx, req.PrincipalID, req.Method, req.Code)
		if err != nil {
			return nil, coalesceAuthError(err)
		}
		out.SecondFactor = req.Method
		if req.Method == MethodBackupCode {
			out.BackupCodesRemaining = remaining
		}
	}

	meta := req.Meta
	if meta.IP == "" {
		meta.IP = clientIPFromContext(ctx)
	}
	if meta.UserAgent == "" {
		meta.UserAgent = userAgentFromContext(ctx)
	}

	pair, err := e.IssuePair(ctx, req.PrincipalID, meta)
	if err != nil {
		return nil, err
	}
	out.Tokens = pair

	e.emitAudit(ctx, auditEventLoginSuccess, true, req.PrincipalID, pair.TokenID, nil, func() map[string]string {
		return map[string]string{
			"second_factor": string(out.SecondFactor),
			"ip":            meta.IP,
		}
	})
	return out, nil
}

// coalesceAuthError folds every "who or what was wrong" failure into
// ErrVerificationFailed.
func coalesceAuthError(err error) error {
	switch kinds.Of(err) {
	case kinds.TooManyAttempts, kinds.Internal:
		return err
	}
	if errors.Is(err, ErrSecondFactorRequired) {
		return err
	}
	return fmt.Errorf("%w: authentication failed", ErrVerificationFailed)
}
