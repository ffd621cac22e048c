package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	goVault "github.com/MrEthical07/goVault"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the access claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*goVault.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*goVault.AccessClaims)
	return claims, ok
}

type verifyFunc func(ctx context.Context, token string) (*goVault.AccessClaims, error)

func guard(engine *goVault.Engine, verify verifyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, goVault.KindInternal)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, goVault.KindTokenMalformed)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				kind := goVault.KindOf(err)
				status := http.StatusUnauthorized
				if kind == goVault.KindInternal {
					status = http.StatusServiceUnavailable
				}
				writeError(w, status, kind)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientMeta copies the peer address and User-Agent into the request context so
// Login and IssuePair record them on refresh records and audit events.
func ClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ctx := goVault.WithClientIP(r.Context(), host)
		ctx = goVault.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, kind goVault.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(kind)})
}
