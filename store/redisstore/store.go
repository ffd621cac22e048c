// Package redisstore implements store.Store on Redis. Records are JSON values under
// a key prefix; backup-code consumption and SMS verification use WATCH/MULTI
// optimistic transactions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/MrEthical07/goVault/store"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 4

// ErrBackend wraps Redis transport failures.
var ErrBackend = fmt.Errorf("%w: store backend unavailable", kinds.ErrInternal)

// Store is a Redis-backed store.Store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a store whose keys live under prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gvs"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(kind, principalID string) string {
	return s.prefix + ":" + kind + ":" + principalID
}

func (s *Store) GetCredential(ctx context.Context, principalID string) (*store.Credential, error) {
	var cred store.Credential
	if err := s.getJSON(ctx, s.key("cred", principalID), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) CreateCredential(ctx context.Context, cred *store.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("%w: encode credential: %v", kinds.ErrInternal, err)
	}
	ok, err := s.redis.SetNX(ctx, s.key("cred", cred.PrincipalID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !ok {
		return fmt.Errorf("%w: credential", kinds.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) PutCredential(ctx context.Context, cred *store.Credential) error {
	return s.setJSON(ctx, s.key("cred", cred.PrincipalID), cred, 0)
}

func (s *Store) DeleteCredential(ctx context.Context, principalID string) error {
	return s.del(ctx, s.key("cred", principalID))
}

func (s *Store) GetTOTP(ctx context.Context, principalID string) (*store.TOTPSecret, error) {
	var secret store.TOTPSecret
	if err := s.getJSON(ctx, s.key("totp", principalID), &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

func (s *Store) PutTOTP(ctx context.Context, secret *store.TOTPSecret) error {
	return s.setJSON(ctx, s.key("totp", secret.PrincipalID), secret, 0)
}

func (s *Store) DeleteTOTP(ctx context.Context, principalID string) error {
	return s.del(ctx, s.key("totp", principalID))
}

func (s *Store) ListBackupCodes(ctx context.Context, principalID string) ([]store.BackupCode, error) {
	var codes []store.BackupCode
	err := s.getJSON(ctx, s.key("bc", principalID), &codes)
	if errors.Is(err, kinds.ErrNotFound) {
		return []store.BackupCode{}, nil
	}
	return codes, err
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, principalID string, codes []store.BackupCode) error {
	return s.setJSON(ctx, s.key("bc", principalID), codes, 0)
}

func (s *Store) MarkBackupCodeUsed(ctx context.Context, principalID, codeID string, usedAt time.Time) (bool, error) {
	key := s.key("bc", principalID)

	for i := 0; i < maxRetries; i++ {
		var marked bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var codes []store.BackupCode
			if err := json.Unmarshal(data, &codes); err != nil {
				return fmt.Errorf("%w: corrupt backup codes", kinds.ErrInternal)
			}

			idx := -1
			for j := range codes {
				if codes[j].ID == codeID {
					idx = j
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("%w: backup code", kinds.ErrNotFound)
			}
			if codes[idx].Used {
				return nil
			}
			codes[idx].Used = true
			codes[idx].UsedAt = usedAt

			updated, err := json.Marshal(codes)
			if err != nil {
				return fmt.Errorf("%w: encode backup codes: %v", kinds.ErrInternal, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			if err == nil {
				marked = true
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, s.translate(err, "backup code")
		}
		return marked, nil
	}

	return false, fmt.Errorf("%w: backup code contention", ErrBackend)
}

func (s *Store) DeleteBackupCodes(ctx context.Context, principalID string) error {
	return s.del(ctx, s.key("bc", principalID))
}

// PutSMSChallenge stores the challenge with a key TTL slightly past its expiry so
// verification still sees it and reports expiry rather than absence.
func (s *Store) PutSMSChallenge(ctx context.Context, ch *store.SMSChallenge) error {
	return s.setJSON(ctx, s.key("sms", ch.PrincipalID), ch, s.smsTTL(ch))
}

func (s *Store) GetSMSChallenge(ctx context.Context, principalID string) (*store.SMSChallenge, error) {
	var ch store.SMSChallenge
	if err := s.getJSON(ctx, s.key("sms", principalID), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) UpdateSMSChallenge(ctx context.Context, principalID string, fn store.SMSUpdate) error {
	key := s.key("sms", principalID)

	for i := 0; i < maxRetries; i++ {
		var result error
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
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

			updated, err := json.Marshal(&ch)
			if err != nil {
				return fmt.Errorf("%w: encode sms challenge: %v", kinds.ErrInternal, err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return s.translate(err, "sms challenge")
		}
		return result
	}

	return fmt.Errorf("%w: sms challenge contention", ErrBackend)
}

func (s *Store) DeleteSMSChallenge(ctx context.Context, principalID string) error {
	return s.del(ctx, s.key("sms", principalID))
}

func (s *Store) GetTwoFactorState(ctx context.Context, principalID string) (*store.TwoFactorState, error) {
	var state store.TwoFactorState
	if err := s.getJSON(ctx, s.key("2fa", principalID), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) PutTwoFactorState(ctx context.Context, state *store.TwoFactorState) error {
	return s.setJSON(ctx, s.key("2fa", state.PrincipalID), state, 0)
}

func (s *Store) smsTTL(ch *store.SMSChallenge) time.Duration {
	ttl := time.Until(ch.ExpiresAt) + time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}

func (s *Store) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return s.translate(err, key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: corrupt record %s", kinds.ErrInternal, key)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", kinds.ErrInternal, key, err)
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *Store) del(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *Store) translate(err error, what string) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", kinds.ErrNotFound, what)
	}
	var kerr *kinds.Error
	if errors.As(err, &kerr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBackend, err)
}
