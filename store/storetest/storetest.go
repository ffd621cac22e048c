// Package storetest is a conformance suite every store.Store implementation runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/password"
	"github.com/MrEthical07/goVault/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore against the store.Store contract. newStore must return a
// fresh, empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("Credentials", func(t *testing.T) { testCredentials(t, newStore(t)) })
	t.Run("TOTP", func(t *testing.T) { testTOTP(t, newStore(t)) })
	t.Run("BackupCodes", func(t *testing.T) { testBackupCodes(t, newStore(t)) })
	t.Run("BackupCodeRace", func(t *testing.T) { testBackupCodeRace(t, newStore(t)) })
	t.Run("SMS", func(t *testing.T) { testSMS(t, newStore(t)) })
	t.Run("TwoFactorState", func(t *testing.T) { testTwoFactorState(t, newStore(t)) })
}

func testCredentials(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.GetCredential(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound), "expected NOT_FOUND, got %v", err)

	cred := &store.Credential{PrincipalID: "u1", Hash: "$2b$04$legacy", Algorithm: password.AlgorithmBcrypt, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateCredential(ctx, cred))

	err = s.CreateCredential(ctx, cred)
	assert.True(t, errors.Is(err, kinds.ErrAlreadyExists), "expected ALREADY_EXISTS, got %v", err)

	got, err := s.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, password.AlgorithmBcrypt, got.Algorithm)
	assert.Equal(t, "$2b$04$legacy", got.Hash)

	got.Hash = "$argon2id$v=19$new"
	got.Algorithm = password.AlgorithmArgon2id
	require.NoError(t, s.PutCredential(ctx, got))

	got, err = s.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, password.AlgorithmArgon2id, got.Algorithm)

	require.NoError(t, s.DeleteCredential(ctx, "u1"))
	_, err = s.GetCredential(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound))
}

func testTOTP(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetTOTP(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound))

	require.NoError(t, s.PutTOTP(ctx, &store.TOTPSecret{PrincipalID: "u1", Secret: "JBSWY3DPEHPK3PXP"}))
	got, err := s.GetTOTP(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.Secret)

	require.NoError(t, s.DeleteTOTP(ctx, "u1"))
	_, err = s.GetTOTP(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound))
}

func testBackupCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	codes, err := s.ListBackupCodes(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, codes)

	batch := []store.BackupCode{
		{ID: "c1", PrincipalID: "u1", Hash: "h1", CreatedAt: now},
		{ID: "c2", PrincipalID: "u1", Hash: "h2", CreatedAt: now},
	}
	require.NoError(t, s.ReplaceBackupCodes(ctx, "u1", batch))

	marked, err := s.MarkBackupCodeUsed(ctx, "u1", "c1", now)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = s.MarkBackupCodeUsed(ctx, "u1", "c1", now)
	require.NoError(t, err)
	assert.False(t, marked, "second mark must lose")

	_, err = s.MarkBackupCodeUsed(ctx, "u1", "missing", now)
	assert.True(t, errors.Is(err, kinds.ErrNotFound))

	codes, err = s.ListBackupCodes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.True(t, codes[0].Used)
	assert.False(t, codes[1].Used)

	require.NoError(t, s.ReplaceBackupCodes(ctx, "u1", []store.BackupCode{{ID: "c3", PrincipalID: "u1", Hash: "h3"}}))
	codes, err = s.ListBackupCodes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "c3", codes[0].ID)

	require.NoError(t, s.DeleteBackupCodes(ctx, "u1"))
	codes, err = s.ListBackupCodes(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func testBackupCodeRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.ReplaceBackupCodes(ctx, "u1", []store.BackupCode{{ID: "c1", PrincipalID: "u1", Hash: "h1"}}))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := s.MarkBackupCodeUsed(ctx, "u1", "c1", time.Now())
			if err == nil && marked {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins, "exactly one concurrent consumer may win")
}

func testSMS(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.UpdateSMSChallenge(ctx, "u1", func(ch *store.SMSChallenge) (bool, error) {
		t.Fatal("fn must not run for a missing challenge")
		return false, nil
	})
	assert.True(t, errors.Is(err, kinds.ErrNotFound))

	require.NoError(t, s.PutSMSChallenge(ctx, &store.SMSChallenge{
		PrincipalID: "u1",
		Phone:       "+15555550100",
		Code:        "123456",
		ExpiresAt:   now.Add(10 * time.Minute),
	}))

	err = s.UpdateSMSChallenge(ctx, "u1", func(ch *store.SMSChallenge) (bool, error) {
		ch.Attempts++
		return true, kinds.ErrVerificationFailed
	})
	assert.True(t, errors.Is(err, kinds.ErrVerificationFailed))

	err = s.UpdateSMSChallenge(ctx, "u1", func(ch *store.SMSChallenge) (bool, error) {
		ch.Attempts = 99
		return false, nil
	})
	require.NoError(t, err)

	got, err := s.GetSMSChallenge(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts, "unwritten mutation must not persist")

	require.NoError(t, s.PutSMSChallenge(ctx, &store.SMSChallenge{PrincipalID: "u1", Code: "654321", ExpiresAt: now.Add(time.Minute)}))
	got, err = s.GetSMSChallenge(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "654321", got.Code)
	assert.Equal(t, 0, got.Attempts)

	require.NoError(t, s.DeleteSMSChallenge(ctx, "u1"))
	_, err = s.GetSMSChallenge(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound))
}

func testTwoFactorState(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.GetTwoFactorState(ctx, "u1")
	assert.True(t, errors.Is(err, kinds.ErrNotFound))

	require.NoError(t, s.PutTwoFactorState(ctx, &store.TwoFactorState{PrincipalID: "u1", Method: "TOTP", DisabledAt: now}))
	got, err := s.GetTwoFactorState(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.DisabledAt.Equal(now))
}
