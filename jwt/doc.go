// Package jwt signs and verifies the HS256 bearer tokens used for access and refresh.
//
// Access and refresh tokens are signed with independent keys (the refresh key falls
// back to the access key) and carry sub, iss, aud, iat and exp. Refresh tokens add a
// tokenId naming their registry record. Every parse uses the injected clock, and
// failures are reported as TOKEN_MALFORMED, TOKEN_EXPIRED or TOKEN_INVALID.
package jwt
