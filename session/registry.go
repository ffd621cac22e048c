package session

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
)

// ErrRedisUnavailable wraps transport failures from the Redis-backed registry and blacklist.
var ErrRedisUnavailable = fmt.Errorf("%w: redis unavailable", kinds.ErrInternal)

// Registry owns refresh records and the per-principal index of active token IDs.
// Both views live behind one implementation so they cannot drift apart.
//
// Implementations must make Touch atomic with respect to Revoke for the same tokenID.
type Registry interface {
	// Insert stores an ACTIVE record and indexes it under its principal. It fails
	// with ALREADY_EXISTS when the tokenID is taken.
	Insert(ctx context.Context, rec *Record) error

	// Get returns a copy of the record. Records that are missing or past their
	// PurgeAt fail with TOKEN_NOT_FOUND.
	Get(ctx context.Context, tokenID string, now time.Time) (*Record, error)

	// Touch verifies the record is live for principalID and stamps LastUsedAt=now.
	// A record past ExpiresAt is revoked in the same step (purge after grace) and
	// TOKEN_EXPIRED is returned. Other failures: TOKEN_NOT_FOUND, TOKEN_REVOKED,
	// TOKEN_INVALID (principal mismatch).
	Touch(ctx context.Context, tokenID, principalID string, now time.Time, grace time.Duration) (*Record, error)

	// Revoke moves an ACTIVE record to REVOKED, drops it from the index and
	// schedules its purge at now+grace. It reports whether this call made the
	// transition; revoking a revoked record is a no-op. Missing records fail
	// with TOKEN_NOT_FOUND.
	Revoke(ctx context.Context, tokenID string, now time.Time, grace time.Duration, reason string) (bool, error)

	// ListActive returns the principal's ACTIVE records, oldest first.
	ListActive(ctx context.Context, principalID string) ([]*Record, error)

	// ExpiredActive returns token IDs of ACTIVE records whose ExpiresAt is before now.
	ExpiredActive(ctx context.Context, now time.Time) ([]string, error)

	// Purge physically deletes REVOKED records whose PurgeAt is not after now.
	Purge(ctx context.Context, now time.Time) (int, error)
}

// Blacklist holds access tokens rejected before their natural expiry.
type Blacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}
