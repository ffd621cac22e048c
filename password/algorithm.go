package password

import "strings"

// Algorithm names the scheme that produced an encoded password hash.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmArgon2i  Algorithm = "argon2i"
	AlgorithmArgon2d  Algorithm = "argon2d"
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmUnknown  Algorithm = "unknown"
)

// AlgorithmOf classifies encodedHash by its prefix. It does not validate the rest
// of the encoding.
func AlgorithmOf(encodedHash string) Algorithm {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return AlgorithmArgon2id
	case strings.HasPrefix(encodedHash, "$argon2i$"):
		return AlgorithmArgon2i
	case strings.HasPrefix(encodedHash, "$argon2d$"):
		return AlgorithmArgon2d
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return AlgorithmBcrypt
	default:
		return AlgorithmUnknown
	}
}
