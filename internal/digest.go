package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenDigest returns the hex SHA-256 of v. Bearer tokens are keyed by digest so the
// raw value is never held as a map key or written to a backend.
func TokenDigest(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
