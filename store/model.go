package store

import (
	"time"

	"github.com/MrEthical07/goVault/password"
)

// Credential is the stored password hash of one principal. Algorithm is the
// closed tag verification dispatches on.
type Credential struct {
	PrincipalID string             `json:"principalId"`
	Hash        string             `json:"hash"`
	Algorithm   password.Algorithm `json:"algorithm"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// TOTPSecret is a principal's authenticator secret. Enabled implies VerifiedAt is set.
// LastUsedCounter is the time step of the last accepted code; zero means none.
type TOTPSecret struct {
	PrincipalID     string    `json:"principalId"`
	Secret          string    `json:"secret"`
	Enabled         bool      `json:"enabled"`
	LastUsedCounter int64     `json:"lastUsedCounter,omitempty"`
	VerifiedAt      time.Time `json:"verifiedAt,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BackupCode is one hashed single-use recovery code.
type BackupCode struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principalId"`
	Hash        string    `json:"hash"`
	Used        bool      `json:"used"`
	UsedAt      time.Time `json:"usedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SMSChallenge is the single outstanding SMS one-time code of a principal.
type SMSChallenge struct {
	PrincipalID string    `json:"principalId"`
	Phone       string    `json:"phone"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Attempts    int       `json:"attempts"`
	Used        bool      `json:"used"`
	VerifiedAt  time.Time `json:"verifiedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TwoFactorState records when second-factor protection was last turned on or off.
type TwoFactorState struct {
	PrincipalID string    `json:"principalId"`
	Method      string    `json:"method,omitempty"`
	EnabledAt   time.Time `json:"enabledAt,omitempty"`
	DisabledAt  time.Time `json:"disabledAt,omitempty"`
}

// SMSUpdate inspects and optionally mutates a challenge inside an atomic
// read-modify-write. When write is true the mutated challenge is stored; result
// is returned to the caller of UpdateSMSChallenge either way.
type SMSUpdate func(ch *SMSChallenge) (write bool, result error)
