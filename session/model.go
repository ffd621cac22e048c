package session

import "time"

// State is the lifecycle position of a refresh record. Transitions only move
// forward: ACTIVE to REVOKED to PURGED.
type State string

const (
	StateActive  State = "ACTIVE"
	StateRevoked State = "REVOKED"
	StatePurged  State = "PURGED"
)

// Revocation reasons recorded on a record.
const (
	ReasonUser         = "user"
	ReasonSessionLimit = "session_limit"
	ReasonExpired      = "expired"
	ReasonRotated      = "rotated"
	ReasonPrincipal    = "principal_revoked"
)

// Meta describes the client that obtained a refresh token.
type Meta struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`
}

// Record is the server-side state of one refresh token, keyed by TokenID.
//
// IssuedAt <= LastUsedAt <= ExpiresAt holds for every record a registry returns.
type Record struct {
	TokenID     string
	PrincipalID string

	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	Meta  Meta
	State State

	RevokedAt    time.Time
	RevokeReason string
	PurgeAt      time.Time

	// Seq orders records issued within the same clock tick. Assigned on Insert.
	Seq uint64
}

// Active reports whether the record is still usable.
func (r *Record) Active() bool {
	return r != nil && r.State == StateActive
}

// Clone returns a detached copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// issuedBefore orders records by IssuedAt, then by Seq.
func issuedBefore(a, b *Record) bool {
	if !a.IssuedAt.Equal(b.IssuedAt) {
		return a.IssuedAt.Before(b.IssuedAt)
	}
	return a.Seq < b.Seq
}
