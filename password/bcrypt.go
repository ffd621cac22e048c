package password

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt verifies hashes written by earlier deployments. New credentials are never
// stored as bcrypt; Hash exists for migration fixtures.
type Bcrypt struct{}

// Verify reports whether password matches the bcrypt hash. Malformed hashes and
// passwords beyond bcrypt's 72-byte limit verify false.
func (Bcrypt) Verify(password string, hash string) bool {
	if AlgorithmOf(hash) != AlgorithmBcrypt {
		return false
	}
	raw := []byte(password)
	defer memguard.WipeBytes(raw)
	return bcrypt.CompareHashAndPassword([]byte(hash), raw) == nil
}

// Hash produces a bcrypt hash at cost. A zero cost uses bcrypt.DefaultCost.
func (Bcrypt) Hash(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", kinds.ErrInvalidInput)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	raw := []byte(password)
	defer memguard.WipeBytes(raw)

	out, err := bcrypt.GenerateFromPassword(raw, cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password exceeds 72 bytes", kinds.ErrInvalidInput)
		}
		return "", fmt.Errorf("%w: bcrypt: %v", kinds.ErrInvalidInput, err)
	}
	return string(out), nil
}
