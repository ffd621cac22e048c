package shamir

import (
	"fmt"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/google/uuid"
)

type SecurityLevel string

const (
	SecurityHigh   SecurityLevel = "high"
	SecurityMedium SecurityLevel = "medium"
	SecurityLow    SecurityLevel = "low"
)

// Guardian is a person or device entrusted with one share.
type Guardian struct {
	Name     string            `json:"name"`
	Contact  string            `json:"contact,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GuardianShare binds a share to its guardian.
type GuardianShare struct {
	ShareID  string   `json:"shareId"`
	Guardian Guardian `json:"guardian"`
	Share    Share    `json:"share"`
}

// SocialRecovery is the result of [CreateSocial].
type SocialRecovery struct {
	ID            string          `json:"id"`
	Threshold     int             `json:"threshold"`
	TotalShares   int             `json:"totalShares"`
	SecurityLevel SecurityLevel   `json:"securityLevel"`
	Assignments   []GuardianShare `json:"assignments"`
}

// DefaultThreshold returns ⌈0.6·n⌉.
func DefaultThreshold(n int) int {
	return (3*n + 4) / 5
}

// CreateSocial splits secret across guardians in input order. A zero k selects
// [DefaultThreshold]; any other k must lie in [2, len(guardians)].
func CreateSocial(secret []byte, guardians []Guardian, k int) (*SocialRecovery, error) {
	n := len(guardians)
	if n < MinShares {
		return nil, fmt.Errorf("%w: need at least %d guardians, got %d", kinds.ErrInvalidInput, MinShares, n)
	}
	if k == 0 {
		k = DefaultThreshold(n)
	}
	if k < MinShares || k > n {
		return nil, fmt.Errorf("%w: threshold %d outside [%d, %d]", kinds.ErrInvalidInput, k, MinShares, n)
	}

	shares, err := Split(secret, n, k)
	if err != nil {
		return nil, err
	}

	out := &SocialRecovery{
		ID:            uuid.NewString(),
		Threshold:     k,
		TotalShares:   n,
		SecurityLevel: Assess(k, n),
		Assignments:   make([]GuardianShare, n),
	}
	for i, g := range guardians {
		out.Assignments[i] = GuardianShare{
			ShareID:  uuid.NewString(),
			Guardian: cloneGuardian(g),
			Share:    shares[i],
		}
	}
	return out, nil
}

// Assess grades k of n by the ratio k/n: high at 0.7 or above, medium from 0.5,
// low below. The grade is advisory.
func Assess(k, n int) SecurityLevel {
	if n <= 0 || k <= 0 {
		return SecurityLow
	}
	switch {
	case 10*k >= 7*n:
		return SecurityHigh
	case 2*k >= n:
		return SecurityMedium
	default:
		return SecurityLow
	}
}

func cloneGuardian(g Guardian) Guardian {
	if g.Metadata == nil {
		return g
	}
	md := make(map[string]string, len(g.Metadata))
	for k, v := range g.Metadata {
		md[k] = v
	}
	g.Metadata = md
	return g
}
