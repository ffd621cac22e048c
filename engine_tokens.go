package goVault

import (
	"context"
	"time"

	"github.com/MrEthical07/goVault/internal/flows"
)

// IssuePair signs an access token and a refresh token for principalID, records the
// refresh token and trims the principal back to Token.MaxConcurrentSessions by
// revoking the oldest sessions.
func (e *Engine) IssuePair(ctx context.Context, principalID string, meta SessionMeta) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunIssuePair(ctx, principalID, meta, e.flows.Tokens)
}

// VerifyAccess checks an access token's signature and claims and rejects
// blacklisted tokens. It does not consult the refresh registry.
func (e *Engine) VerifyAccess(ctx context.Context, token string) (*AccessClaims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}
	claims, err := flows.RunVerifyAccess(ctx, token, e.flows.Tokens)
	if !start.IsZero() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return claims, err
}

// VerifyRefresh checks a refresh token and its registry record, stamping the
// record's last use. Revoked tokens fail with ErrTokenRevoked until purged and
// with ErrTokenNotFound afterwards.
func (e *Engine) VerifyRefresh(ctx context.Context, token string) (*RefreshClaims, *Session, error) {
	if !e.ready() {
		return nil, nil, ErrEngineNotReady
	}
	return flows.RunVerifyRefresh(ctx, token, e.flows.Tokens)
}

// RefreshAccess exchanges a live refresh token for a new access token. With
// Token.RotateRefresh set, the presented refresh token is revoked and a new one
// returned alongside.
func (e *Engine) RefreshAccess(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunRefreshAccess(ctx, refreshToken, e.flows.Tokens)
}

// Revoke retires one refresh token. Revoking twice is not an error.
func (e *Engine) Revoke(ctx context.Context, tokenID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunRevoke(ctx, tokenID, e.flows.Tokens)
}

// RevokeAll retires every active refresh token of the principal.
func (e *Engine) RevokeAll(ctx context.Context, principalID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return flows.RunRevokeAll(ctx, principalID, e.flows.Tokens)
}

// BlacklistAccess rejects an access token for the remainder of its lifetime.
func (e *Engine) BlacklistAccess(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunBlacklistAccess(ctx, token, e.flows.Tokens)
}

// ListSessions returns the principal's active sessions, oldest first.
func (e *Engine) ListSessions(ctx context.Context, principalID string) ([]*Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrInvalidInput
	}
	return e.registry.ListActive(ctx, principalID)
}

// SweepExpired runs one maintenance pass immediately. The background sweeper
// calls the same routine every Token.SweepInterval.
func (e *Engine) SweepExpired(ctx context.Context) (SweepResult, error) {
	if !e.ready() {
		return SweepResult{}, ErrEngineNotReady
	}
	return flows.RunSweep(ctx, e.flows.Tokens)
}
