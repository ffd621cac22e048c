package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
)

// Memory is a map-backed Store for tests and single-process deployments.
type Memory struct {
	mu          sync.Mutex
	credentials map[string]Credential
	totp        map[string]TOTPSecret
	backupCodes map[string][]BackupCode
	sms         map[string]SMSChallenge
	twoFactor   map[string]TwoFactorState
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		credentials: make(map[string]Credential),
		totp:        make(map[string]TOTPSecret),
		backupCodes: make(map[string][]BackupCode),
		sms:         make(map[string]SMSChallenge),
		twoFactor:   make(map[string]TwoFactorState),
	}
}

func (m *Memory) GetCredential(_ context.Context, principalID string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[principalID]
	if !ok {
		return nil, fmt.Errorf("%w: credential", kinds.ErrNotFound)
	}
	return &cred, nil
}

func (m *Memory) CreateCredential(_ context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[cred.PrincipalID]; ok {
		return fmt.Errorf("%w: credential", kinds.ErrAlreadyExists)
	}
	m.credentials[cred.PrincipalID] = *cred
	return nil
}

func (m *Memory) PutCredential(_ context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.PrincipalID] = *cred
	return nil
}

func (m *Memory) DeleteCredential(_ context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.credentials, principalID)
	return nil
}

func (m *Memory) GetTOTP(_ context.Context, principalID string) (*TOTPSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.totp[principalID]
	if !ok {
		return nil, fmt.Errorf("%w: totp secret", kinds.ErrNotFound)
	}
	return &secret, nil
}

func (m *Memory) PutTOTP(_ context.Context, secret *TOTPSecret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totp[secret.PrincipalID] = *secret
	return nil
}

func (m *Memory) DeleteTOTP(_ context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.totp, principalID)
	return nil
}

func (m *Memory) ListBackupCodes(_ context.Context, principalID string) ([]BackupCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.backupCodes[principalID]
	out := make([]BackupCode, len(codes))
	copy(out, codes)
	return out, nil
}

func (m *Memory) ReplaceBackupCodes(_ context.Context, principalID string, codes []BackupCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]BackupCode, len(codes))
	copy(stored, codes)
	m.backupCodes[principalID] = stored
	return nil
}

func (m *Memory) MarkBackupCodeUsed(_ context.Context, principalID, codeID string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.backupCodes[principalID]
	for i := range codes {
		if codes[i].ID != codeID {
			continue
		}
		if codes[i].Used {
			return false, nil
		}
		codes[i].Used = true
		codes[i].UsedAt = usedAt
		return true, nil
	}
	return false, fmt.Errorf("%w: backup code", kinds.ErrNotFound)
}

func (m *Memory) DeleteBackupCodes(_ context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.backupCodes, principalID)
	return nil
}

func (m *Memory) PutSMSChallenge(_ context.Context, ch *SMSChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sms[ch.PrincipalID] = *ch
	return nil
}

func (m *Memory) GetSMSChallenge(_ context.Context, principalID string) (*SMSChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.sms[principalID]
	if !ok {
		return nil, fmt.Errorf("%w: sms challenge", kinds.ErrNotFound)
	}
	return &ch, nil
}

func (m *Memory) UpdateSMSChallenge(_ context.Context, principalID string, fn SMSUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.sms[principalID]
	if !ok {
		return fmt.Errorf("%w: sms challenge", kinds.ErrNotFound)
	}
	write, result := fn(&ch)
	if write {
		m.sms[principalID] = ch
	}
	return result
}

func (m *Memory) DeleteSMSChallenge(_ context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sms, principalID)
	return nil
}

func (m *Memory) GetTwoFactorState(_ context.Context, principalID string) (*TwoFactorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.twoFactor[principalID]
	if !ok {
		return nil, fmt.Errorf("%w: two-factor state", kinds.ErrNotFound)
	}
	return &state, nil
}

func (m *Memory) PutTwoFactorState(_ context.Context, state *TwoFactorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.twoFactor[state.PrincipalID] = *state
	return nil
}
