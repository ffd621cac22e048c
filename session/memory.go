package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
)

// MemoryRegistry keeps refresh records in process memory. State is lost on restart,
// after which every previously issued refresh token reports TOKEN_NOT_FOUND.
//
// records is the single owner; byPrincipal only holds token IDs and is updated
// under the same lock.
type MemoryRegistry struct {
	mu          sync.RWMutex
	records     map[string]*Record
	byPrincipal map[string]map[string]struct{}
	seq         uint64
}

// NewMemoryRegistry returns an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records:     make(map[string]*Record),
		byPrincipal: make(map[string]map[string]struct{}),
	}
}

// Insert implements Registry.
func (m *MemoryRegistry) Insert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.TokenID == "" || rec.PrincipalID == "" {
		return fmt.Errorf("%w: record requires token and principal", kinds.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", kinds.ErrInternal, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.TokenID]; exists {
		return fmt.Errorf("%w: token id collision", kinds.ErrAlreadyExists)
	}

	m.seq++
	stored := rec.Clone()
	stored.State = StateActive
	stored.Seq = m.seq
	if stored.LastUsedAt.IsZero() {
		stored.LastUsedAt = stored.IssuedAt
	}
	m.records[stored.TokenID] = stored

	idx := m.byPrincipal[stored.PrincipalID]
	if idx == nil {
		idx = make(map[string]struct{})
		m.byPrincipal[stored.PrincipalID] = idx
	}
	idx[stored.TokenID] = struct{}{}

	rec.Seq = stored.Seq
	rec.State = StateActive
	return nil
}

// Get implements Registry.
func (m *MemoryRegistry) Get(ctx context.Context, tokenID string, now time.Time) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.lookup(tokenID, now)
	if !ok {
		return nil, kinds.ErrTokenNotFound
	}
	return rec.Clone(), nil
}

// Touch implements Registry.
func (m *MemoryRegistry) Touch(ctx context.Context, tokenID, principalID string, now time.Time, grace time.Duration) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.lookup(tokenID, now)
	if !ok {
		return nil, kinds.ErrTokenNotFound
	}
	if rec.State != StateActive {
		return nil, kinds.ErrTokenRevoked
	}
	if rec.PrincipalID != principalID {
		return nil, fmt.Errorf("%w: principal mismatch", kinds.ErrTokenInvalid)
	}
	if now.After(rec.ExpiresAt) {
		m.revokeLocked(rec, now, grace, ReasonExpired)
		return nil, kinds.ErrTokenExpired
	}

	if now.After(rec.LastUsedAt) {
		rec.LastUsedAt = now
	}
	return rec.Clone(), nil
}

// Revoke implements Registry.
func (m *MemoryRegistry) Revoke(ctx context.Context, tokenID string, now time.Time, grace time.Duration, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.lookup(tokenID, now)
	if !ok {
		return false, kinds.ErrTokenNotFound
	}
	if rec.State != StateActive {
		return false, nil
	}
	m.revokeLocked(rec, now, grace, reason)
	return true, nil
}

// ListActive implements Registry.
func (m *MemoryRegistry) ListActive(ctx context.Context, principalID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byPrincipal[principalID]
	out := make([]*Record, 0, len(idx))
	for tokenID := range idx {
		if rec, ok := m.records[tokenID]; ok && rec.State == StateActive {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return issuedBefore(out[i], out[j]) })
	return out, nil
}

// ExpiredActive implements Registry.
func (m *MemoryRegistry) ExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for tokenID, rec := range m.records {
		if rec.State == StateActive && now.After(rec.ExpiresAt) {
			out = append(out, tokenID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Purge implements Registry.
func (m *MemoryRegistry) Purge(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for tokenID, rec := range m.records {
		if rec.State == StateRevoked && !rec.PurgeAt.After(now) {
			rec.State = StatePurged
			delete(m.records, tokenID)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of records still held, including revoked ones.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryRegistry) lookup(tokenID string, now time.Time) (*Record, bool) {
	rec, ok := m.records[tokenID]
	if !ok {
		return nil, false
	}
	if rec.State != StateActive && !rec.PurgeAt.After(now) {
		return nil, false
	}
	return rec, true
}

func (m *MemoryRegistry) revokeLocked(rec *Record, now time.Time, grace time.Duration, reason string) {
	rec.State = StateRevoked
	rec.RevokedAt = now
	rec.RevokeReason = reason
	rec.PurgeAt = now.Add(grace)

	if idx := m.byPrincipal[rec.PrincipalID]; idx != nil {
		delete(idx, rec.TokenID)
		if len(idx) == 0 {
			delete(m.byPrincipal, rec.PrincipalID)
		}
	}
}
