package middleware

import (
	"net/http"

	goVault "github.com/MrEthical07/goVault"
)

// RequireAccess admits requests whose bearer token passes
// [goVault.Engine.VerifyAccess]: signature, claims and the blacklist. No refresh
// record is consulted.
func RequireAccess(engine *goVault.Engine) func(http.Handler) http.Handler {
	return guard(engine, engine.VerifyAccess)
}
