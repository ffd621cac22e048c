package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/session"
	"go.uber.org/zap"
)

type TokenPair struct {
	Access           string
	Refresh          string
	TokenID          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type RefreshResult struct {
	Access          string
	AccessExpiresAt time.Time
	TokenID         string

	// Rotated is set when the presented refresh token was retired; Refresh then
	// carries its replacement.
	Rotated          bool
	Refresh          string
	RefreshExpiresAt time.Time
}

type SweepResult struct {
	Revoked int
	Purged  int
}

type TokenMetrics struct {
	TokenIssued         int
	AccessVerified      int
	AccessRejected      int
	AccessBlacklisted   int
	RefreshSuccess      int
	RefreshFailure      int
	RefreshRotated      int
	TokenRevoked        int
	RevokeAll           int
	SessionLimitEvicted int
	SweepRevoked        int
	SweepPurged         int
}

type TokenEvents struct {
	TokenIssued          string
	SessionLimitExceeded string
	TokenRefreshed       string
	TokenRefreshFailed   string
	TokenRevoked         string
	SessionsRevoked      string
	AccessBlacklisted    string
}

type TokenDeps struct {
	MaxSessions   int
	RotateRefresh bool
	// Grace is how long a revoked record keeps answering TOKEN_REVOKED before purge.
	Grace time.Duration

	Now           func() time.Time
	NewTokenID    func() (string, error)
	LockPrincipal func(string) func()

	CreateAccess  func(string) (string, *jwt.AccessClaims, error)
	CreateRefresh func(string, string) (string, *jwt.RefreshClaims, error)
	ParseAccess   func(string) (*jwt.AccessClaims, error)
	ParseRefresh  func(string) (*jwt.RefreshClaims, error)

	Registry  session.Registry
	Blacklist session.Blacklist

	Logger    *zap.Logger
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics TokenMetrics
	Events  TokenEvents
}

// RunIssuePair signs a fresh access/refresh pair, records the refresh token and
// then enforces the concurrent-session cap for the principal.
//
// The cap check runs under the principal's advisory lock, so within one process the
// cap is exact. Across processes sharing a registry it is eventual: every issuance
// trims the principal back to MaxSessions.
func RunIssuePair(ctx context.Context, principalID string, meta session.Meta, deps TokenDeps) (*TokenPair, error) {
	normalizeTokenDeps(&deps)

	if principalID == "" {
		return nil, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if err := tokenDepsReady(deps); err != nil {
		return nil, err
	}

	tokenID, err := deps.NewTokenID()
	if err != nil {
		return nil, fmt.Errorf("%w: token id: %v", kinds.ErrInternal, err)
	}

	unlock := deps.LockPrincipal(principalID)
	defer unlock()

	now := deps.Now()
	refresh, refreshClaims, err := deps.CreateRefresh(principalID, tokenID)
	if err != nil {
		return nil, err
	}
	access, accessClaims, err := deps.CreateAccess(principalID)
	if err != nil {
		return nil, err
	}

	rec := &session.Record{
		TokenID:     tokenID,
		PrincipalID: principalID,
		IssuedAt:    now,
		ExpiresAt:   refreshClaims.ExpiresAt.Time,
		LastUsedAt:  now,
		Meta:        meta,
	}
	if rec.ExpiresAt.Before(now) {
		rec.ExpiresAt = now
	}
	if err := deps.Registry.Insert(ctx, rec); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.TokenIssued)
	deps.EmitAudit(ctx, deps.Events.TokenIssued, true, principalID, tokenID, nil, func() map[string]string {
		return map[string]string{"ip": meta.IP, "user_agent": meta.UserAgent}
	})

	if err := enforceSessionCap(ctx, principalID, now, deps); err != nil {
		deps.Logger.Warn("session cap enforcement failed",
			zap.String("principal_id", principalID),
			zap.Error(err),
		)
	}

	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		TokenID:          tokenID,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func enforceSessionCap(ctx context.Context, principalID string, now time.Time, deps TokenDeps) error {
	if deps.MaxSessions <= 0 {
		return nil
	}
	active, err := deps.Registry.ListActive(ctx, principalID)
	if err != nil {
		return err
	}
	excess := len(active) - deps.MaxSessions
	if excess <= 0 {
		return nil
	}

	// ListActive is oldest first. One event per revocation; a record another
	// process revoked first is not reported twice.
	for _, rec := range active[:excess] {
		changed, err := deps.Registry.Revoke(ctx, rec.TokenID, now, deps.Grace, session.ReasonSessionLimit)
		if err != nil && !errors.Is(err, kinds.ErrTokenNotFound) {
			return err
		}
		if !changed {
			continue
		}
		deps.MetricInc(deps.Metrics.SessionLimitEvicted)
		deps.EmitAudit(ctx, deps.Events.SessionLimitExceeded, true, principalID, rec.TokenID, nil, func() map[string]string {
			return map[string]string{
				"active":       strconv.Itoa(len(active)),
				"max_sessions": strconv.Itoa(deps.MaxSessions),
			}
		})
	}
	return nil
}

// RunVerifyAccess rejects blacklisted tokens before checking signature and claims.
func RunVerifyAccess(ctx context.Context, token string, deps TokenDeps) (*jwt.AccessClaims, error) {
	normalizeTokenDeps(&deps)

	if deps.ParseAccess == nil {
		return nil, fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}

	if deps.Blacklist != nil && token != "" {
		listed, err := deps.Blacklist.Contains(ctx, token)
		if err != nil {
			return nil, err
		}
		if listed {
			deps.MetricInc(deps.Metrics.AccessBlacklisted)
			return nil, kinds.ErrTokenBlacklisted
		}
	}

	claims, err := deps.ParseAccess(token)
	if err != nil {
		deps.MetricInc(deps.Metrics.AccessRejected)
		return nil, err
	}
	deps.MetricInc(deps.Metrics.AccessVerified)
	return claims, nil
}

// RunVerifyRefresh checks the refresh token and then its registry record, stamping
// LastUsedAt on success.
func RunVerifyRefresh(ctx context.Context, token string, deps TokenDeps) (*jwt.RefreshClaims, *session.Record, error) {
	normalizeTokenDeps(&deps)

	if deps.ParseRefresh == nil || deps.Registry == nil {
		return nil, nil, fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}

	claims, err := deps.ParseRefresh(token)
	if err != nil {
		return nil, nil, err
	}
	rec, err := deps.Registry.Touch(ctx, claims.TokenID, claims.Subject, deps.Now(), deps.Grace)
	if err != nil {
		return nil, nil, err
	}
	return claims, rec, nil
}

// RunRefreshAccess mints a new access token from a live refresh token. With
// RotateRefresh set, the presented token is revoked and a new pair is returned.
func RunRefreshAccess(ctx context.Context, token string, deps TokenDeps) (*RefreshResult, error) {
	normalizeTokenDeps(&deps)

	if err := tokenDepsReady(deps); err != nil {
		return nil, err
	}

	fail := func(principalID, tokenID string, err error) (*RefreshResult, error) {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.TokenRefreshFailed, false, principalID, tokenID, err, nil)
		return nil, err
	}

	claims, rec, err := RunVerifyRefresh(ctx, token, deps)
	if err != nil {
		return fail("", "", err)
	}

	if !deps.RotateRefresh {
		access, accessClaims, err := deps.CreateAccess(rec.PrincipalID)
		if err != nil {
			return fail(rec.PrincipalID, rec.TokenID, err)
		}
		deps.MetricInc(deps.Metrics.RefreshSuccess)
		deps.EmitAudit(ctx, deps.Events.TokenRefreshed, true, rec.PrincipalID, rec.TokenID, nil, nil)
		return &RefreshResult{
			Access:          access,
			AccessExpiresAt: accessClaims.ExpiresAt.Time,
			TokenID:         rec.TokenID,
		}, nil
	}

	changed, err := deps.Registry.Revoke(ctx, claims.TokenID, deps.Now(), deps.Grace, session.ReasonRotated)
	if err != nil {
		return fail(rec.PrincipalID, rec.TokenID, err)
	}
	if !changed {
		// a concurrent refresh already rotated this token
		return fail(rec.PrincipalID, rec.TokenID, kinds.ErrTokenRevoked)
	}

	pair, err := RunIssuePair(ctx, rec.PrincipalID, rec.Meta, deps)
	if err != nil {
		return fail(rec.PrincipalID, rec.TokenID, err)
	}
	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.MetricInc(deps.Metrics.RefreshRotated)
	deps.EmitAudit(ctx, deps.Events.TokenRefreshed, true, rec.PrincipalID, pair.TokenID, nil, func() map[string]string {
		return map[string]string{"rotated_from": rec.TokenID}
	})
	return &RefreshResult{
		Access:           pair.Access,
		AccessExpiresAt:  pair.AccessExpiresAt,
		TokenID:          pair.TokenID,
		Rotated:          true,
		Refresh:          pair.Refresh,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// RunRevoke revokes one refresh token. Revoking an already revoked token succeeds.
func RunRevoke(ctx context.Context, tokenID string, deps TokenDeps) error {
	normalizeTokenDeps(&deps)

	if tokenID == "" {
		return fmt.Errorf("%w: empty token id", kinds.ErrInvalidInput)
	}
	if deps.Registry == nil {
		return fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}

	now := deps.Now()
	rec, err := deps.Registry.Get(ctx, tokenID, now)
	if err != nil {
		return err
	}
	changed, err := deps.Registry.Revoke(ctx, tokenID, now, deps.Grace, session.ReasonUser)
	if err != nil {
		return err
	}
	if changed {
		deps.MetricInc(deps.Metrics.TokenRevoked)
		deps.EmitAudit(ctx, deps.Events.TokenRevoked, true, rec.PrincipalID, tokenID, nil, nil)
	}
	return nil
}

// RunRevokeAll revokes every active refresh token of the principal and reports how
// many it revoked.
func RunRevokeAll(ctx context.Context, principalID string, deps TokenDeps) (int, error) {
	normalizeTokenDeps(&deps)

	if principalID == "" {
		return 0, fmt.Errorf("%w: empty principal", kinds.ErrInvalidInput)
	}
	if deps.Registry == nil {
		return 0, fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}

	unlock := deps.LockPrincipal(principalID)
	defer unlock()

	active, err := deps.Registry.ListActive(ctx, principalID)
	if err != nil {
		return 0, err
	}

	now := deps.Now()
	revoked := 0
	for _, rec := range active {
		changed, err := deps.Registry.Revoke(ctx, rec.TokenID, now, deps.Grace, session.ReasonPrincipal)
		if err != nil && !errors.Is(err, kinds.ErrTokenNotFound) {
			return revoked, err
		}
		if changed {
			revoked++
		}
	}

	deps.MetricInc(deps.Metrics.RevokeAll)
	deps.EmitAudit(ctx, deps.Events.SessionsRevoked, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(revoked)}
	})
	return revoked, nil
}

// RunBlacklistAccess rejects an access token for the rest of its lifetime. Tokens
// that are already expired need no entry.
func RunBlacklistAccess(ctx context.Context, token string, deps TokenDeps) error {
	normalizeTokenDeps(&deps)

	if deps.Blacklist == nil || deps.ParseAccess == nil {
		return fmt.Errorf("%w: blacklist not configured", kinds.ErrInternal)
	}

	claims, err := deps.ParseAccess(token)
	if err != nil {
		if errors.Is(err, kinds.ErrTokenExpired) {
			return nil
		}
		return err
	}

	ttl := claims.ExpiresAt.Time.Sub(deps.Now())
	if ttl <= 0 {
		return nil
	}
	if err := deps.Blacklist.Add(ctx, token, ttl); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.AccessBlacklisted)
	deps.EmitAudit(ctx, deps.Events.AccessBlacklisted, true, claims.Subject, "", nil, nil)
	return nil
}

// RunSweep revokes refresh records past expiry and purges revoked records whose
// grace window has elapsed.
func RunSweep(ctx context.Context, deps TokenDeps) (SweepResult, error) {
	normalizeTokenDeps(&deps)

	var out SweepResult
	if deps.Registry == nil {
		return out, fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}

	now := deps.Now()
	expired, err := deps.Registry.ExpiredActive(ctx, now)
	if err != nil {
		return out, err
	}
	for _, tokenID := range expired {
		changed, err := deps.Registry.Revoke(ctx, tokenID, now, deps.Grace, session.ReasonExpired)
		if err != nil && !errors.Is(err, kinds.ErrTokenNotFound) {
			return out, err
		}
		if changed {
			out.Revoked++
			deps.MetricInc(deps.Metrics.SweepRevoked)
		}
	}

	purged, err := deps.Registry.Purge(ctx, now)
	if err != nil {
		return out, err
	}
	out.Purged = purged
	for i := 0; i < purged; i++ {
		deps.MetricInc(deps.Metrics.SweepPurged)
	}
	return out, nil
}

func tokenDepsReady(deps TokenDeps) error {
	if deps.Registry == nil || deps.NewTokenID == nil || deps.CreateAccess == nil || deps.CreateRefresh == nil || deps.ParseRefresh == nil {
		return fmt.Errorf("%w: token flow not configured", kinds.ErrInternal)
	}
	return nil
}

func normalizeTokenDeps(deps *TokenDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LockPrincipal == nil {
		deps.LockPrincipal = func(string) func() { return func() {} }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
