package middleware

import (
	"context"
	"fmt"
	"net/http"

	goVault "github.com/MrEthical07/goVault"
)

// RequireSession is RequireAccess plus a registry lookup: the principal must still
// hold at least one active refresh record. Revoking every session therefore locks
// the principal out before outstanding access tokens expire.
func RequireSession(engine *goVault.Engine) func(http.Handler) http.Handler {
	return guard(engine, func(ctx context.Context, token string) (*goVault.AccessClaims, error) {
		claims, err := engine.VerifyAccess(ctx, token)
		if err != nil {
			return nil, err
		}
		sessions, err := engine.ListSessions(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, fmt.Errorf("%w: no active session", goVault.ErrTokenRevoked)
		}
		return claims, nil
	})
}
