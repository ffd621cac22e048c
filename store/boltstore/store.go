// Package boltstore implements store.Store on an embedded BBolt database with one
// bucket per entity kind. Atomic operations run inside a single update transaction.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/store"
	"go.etcd.io/bbolt"
)

var (
	bucketCredentials = []byte("credentials")
	bucketTOTP        = []byte("totp")
	bucketBackupCodes = []byte("backup_codes")
	bucketSMS         = []byte("sms")
	bucketTwoFactor   = []byte("two_factor")
)

// Store is a BBolt-backed store.Store.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database and creates the buckets it needs.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCredentials, bucketTOTP, bucketBackupCodes, bucketSMS, bucketTwoFactor} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create buckets: %v", kinds.ErrInternal, err)
	}
	return &Store{db: db}, nil
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening bbolt db: %v", kinds.ErrInternal, err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetCredential(_ context.Context, principalID string) (*store.Credential, error) {
	var cred store.Credential
	if err := s.get(bucketCredentials, principalID, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) CreateCredential(_ context.Context, cred *store.Credential) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b.Get([]byte(cred.PrincipalID)) != nil {
			return fmt.Errorf("%w: credential", kinds.ErrAlreadyExists)
		}
		return putJSON(b, cred.PrincipalID, cred)
	})
}

func (s *Store) PutCredential(_ context.Context, cred *store.Credential) error {
	return s.put(bucketCredentials, cred.PrincipalID, cred)
}

func (s *Store) DeleteCredential(_ context.Context, principalID string) error {
	return s.delete(bucketCredentials, principalID)
}

func (s *Store) GetTOTP(_ context.Context, principalID string) (*store.TOTPSecret, error) {
	var secret store.TOTPSecret
	if err := s.get(bucketTOTP, principalID, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

func (s *Store) PutTOTP(_ context.Context, secret *store.TOTPSecret) error {
	return s.put(bucketTOTP, secret.PrincipalID, secret)
}

func (s *Store) DeleteTOTP(_ context.Context, principalID string) error {
	return s.delete(bucketTOTP, principalID)
}

func (s *Store) ListBackupCodes(_ context.Context, principalID string) ([]store.BackupCode, error) {
	codes := []store.BackupCode{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketBackupCodes).Get([]byte(principalID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &codes)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read backup codes: %v", kinds.ErrInternal, err)
	}
	return codes, nil
}

func (s *Store) ReplaceBackupCodes(_ context.Context, principalID string, codes []store.BackupCode) error {
	return s.put(bucketBackupCodes, principalID, codes)
}

func (s *Store) MarkBackupCodeUsed(_ context.Context, principalID, codeID string, usedAt time.Time) (bool, error) {
	var marked bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBackupCodes)
		data := b.Get([]byte(principalID))
		if data == nil {
			return fmt.Errorf("%w: backup code", kinds.ErrNotFound)
		}
		var codes []store.BackupCode
		if err := json.Unmarshal(data, &codes); err != nil {
			return fmt.Errorf("%w: corrupt backup codes", kinds.ErrInternal)
		}
		for i := range codes {
			if codes[i].ID != codeID {
				continue
			}
			if codes[i].Used {
				return nil
			}
			codes[i].Used = true
			codes[i].UsedAt = usedAt
			marked = true
			return putJSON(b, principalID, codes)
		}
		return fmt.Errorf("%w: backup code", kinds.ErrNotFound)
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func (s *Store) DeleteBackupCodes(_ context.Context, principalID string) error {
	return s.delete(bucketBackupCodes, principalID)
}

func (s *Store) PutSMSChallenge(_ context.Context, ch *store.SMSChallenge) error {
	return s.put(bucketSMS, ch.PrincipalID, ch)
}

func (s *Store) GetSMSChallenge(_ context.Context, principalID string) (*store.SMSChallenge, error) {
	var ch store.SMSChallenge
	if err := s.get(bucketSMS, principalID, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) UpdateSMSChallenge(_ context.Context, principalID string, fn store.SMSUpdate) error {
	var result error
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSMS)
		data := b.Get([]byte(principalID))
		if data == nil {
			return fmt.Errorf("%w: sms challenge", kinds.ErrNotFound)
		}
		var ch store.SMSChallenge
		if err := json.Unmarshal(data, &ch); err != nil {
			return fmt.Errorf("%w: corrupt sms challenge", kinds.ErrInternal)
		}
		write, res := fn(&ch)
		result = res
		if !write {
			return nil
		}
		return putJSON(b, principalID, &ch)
	})
	if err != nil {
		return err
	}
	return result
}

func (s *Store) DeleteSMSChallenge(_ context.Context, principalID string) error {
	return s.delete(bucketSMS, principalID)
}

func (s *Store) GetTwoFactorState(_ context.Context, principalID string) (*store.TwoFactorState, error) {
	var state store.TwoFactorState
	if err := s.get(bucketTwoFactor, principalID, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) PutTwoFactorState(_ context.Context, state *store.TwoFactorState) error {
	return s.put(bucketTwoFactor, state.PrincipalID, state)
}

func (s *Store) get(bucket []byte, key string, out interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s/%s", kinds.ErrNotFound, bucket, key)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: corrupt %s record", kinds.ErrInternal, bucket)
		}
		return nil
	})
}

func (s *Store) put(bucket []byte, key string, value interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucket), key, value)
	})
}

func (s *Store) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

func putJSON(b *bbolt.Bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode record %s: %v", kinds.ErrInternal, key, err)
	}
	return b.Put([]byte(key), data)
}
