package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/MrEthical07/goVault/internal/kinds"
	"github.com/redis/go-redis/v9"
)

const (
	touchStatusNotFound int64 = 0
	touchStatusOK       int64 = 1
	touchStatusRevoked  int64 = 2
	touchStatusExpired  int64 = 3
	touchStatusMismatch int64 = 4
)

// Shared by touch and revoke: flips an ACTIVE record to REVOKED and moves it from
// the expiry index to the purge index. The key itself expires at purgeAt.
const revokeBody = `
local function revoke(rec_key, idx_key, exp_key, purge_key, token_id, now, purge_at, reason)
  redis.call("HSET", rec_key, "state", "REVOKED", "revokedAt", now, "purgeAt", purge_at, "reason", reason)
  redis.call("SREM", idx_key, token_id)
  redis.call("ZREM", exp_key, token_id)
  redis.call("ZADD", purge_key, purge_at, token_id)
  redis.call("PEXPIREAT", rec_key, purge_at)
end
`

const insertScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local seq = redis.call("INCR", KEYS[5])
redis.call("HSET", KEYS[1],
  "pid", ARGV[2], "iat", ARGV[3], "exp", ARGV[4], "last", ARGV[3],
  "state", "ACTIVE", "meta", ARGV[5], "seq", seq)
redis.call("SADD", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[1])
return seq
`

const touchScript = revokeBody + `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
local f = redis.call("HMGET", KEYS[1], "pid", "state", "exp", "last", "purgeAt")
local now = tonumber(ARGV[3])
if f[2] ~= "ACTIVE" then
  if f[5] and tonumber(f[5]) <= now then
    return {0}
  end
  return {2}
end
if f[1] ~= ARGV[2] then
  return {4}
end
if now > tonumber(f[3]) then
  revoke(KEYS[1], KEYS[2], KEYS[3], KEYS[4], ARGV[1], ARGV[3], ARGV[4], "expired")
  return {3}
end
if now > tonumber(f[4]) then
  redis.call("HSET", KEYS[1], "last", ARGV[3])
end
return {1, redis.call("HGETALL", KEYS[1])}
`

// Revoke derives the principal index key from the stored record, so the key
// prefix is passed in ARGV.
const revokeScript = revokeBody + `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local f = redis.call("HMGET", KEYS[1], "pid", "state", "purgeAt")
local now = tonumber(ARGV[2])
if f[2] ~= "ACTIVE" then
  if f[3] and tonumber(f[3]) <= now then
    return -1
  end
  return 0
end
local idx_key = ARGV[5] .. f[1]
revoke(KEYS[1], idx_key, KEYS[2], KEYS[3], ARGV[1], ARGV[2], ARGV[3], ARGV[4])
return 1
`

var (
	insertLua = redis.NewScript(insertScript)
	touchLua  = redis.NewScript(touchScript)
	revokeLua = redis.NewScript(revokeScript)
)

// RedisRegistry stores each refresh record as a hash, the principal index as a set
// and expiry/purge deadlines in sorted sets. Touch and Revoke run as Lua scripts so
// they are atomic with respect to each other. Records survive process restarts.
type RedisRegistry struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRegistry returns a registry whose keys live under prefix.
func NewRedisRegistry(client redis.UniversalClient, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = "gv"
	}
	return &RedisRegistry{redis: client, prefix: prefix}
}

func (s *RedisRegistry) recordKey(tokenID string) string {
	return s.prefix + ":rt:" + tokenID
}

func (s *RedisRegistry) indexPrefix() string {
	return s.prefix + ":rti:"
}

func (s *RedisRegistry) indexKey(principalID string) string {
	return s.indexPrefix() + principalID
}

func (s *RedisRegistry) expiryKey() string { return s.prefix + ":rtexp" }
func (s *RedisRegistry) purgeKey() string  { return s.prefix + ":rtpurge" }
func (s *RedisRegistry) seqKey() string    { return s.prefix + ":rtseq" }

// Insert implements Registry.
func (s *RedisRegistry) Insert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.TokenID == "" || rec.PrincipalID == "" {
		return fmt.Errorf("%w: record requires token and principal", kinds.ErrInvalidInput)
	}
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("%w: encode meta: %v", kinds.ErrInternal, err)
	}

	seq, err := insertLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(rec.TokenID), s.indexKey(rec.PrincipalID), s.expiryKey(), s.purgeKey(), s.seqKey()},
		rec.TokenID,
		rec.PrincipalID,
		rec.IssuedAt.UnixMilli(),
		rec.ExpiresAt.UnixMilli(),
		string(meta),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if seq == 0 {
		return fmt.Errorf("%w: token id collision", kinds.ErrAlreadyExists)
	}

	rec.Seq = uint64(seq)
	rec.State = StateActive
	return nil
}

// Get implements Registry.
func (s *RedisRegistry) Get(ctx context.Context, tokenID string, now time.Time) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(tokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, kinds.ErrTokenNotFound
	}

	rec, err := decodeRecord(tokenID, fields)
	if err != nil {
		return nil, err
	}
	if rec.State != StateActive && !rec.PurgeAt.After(now) {
		return nil, kinds.ErrTokenNotFound
	}
	return rec, nil
}

// Touch implements Registry.
func (s *RedisRegistry) Touch(ctx context.Context, tokenID, principalID string, now time.Time, grace time.Duration) (*Record, error) {
	raw, err := touchLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(tokenID), s.indexKey(principalID), s.expiryKey(), s.purgeKey()},
		tokenID,
		principalID,
		now.UnixMilli(),
		now.Add(grace).UnixMilli(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty touch reply", kinds.ErrInternal)
	}

	status, ok := raw[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected touch reply", kinds.ErrInternal)
	}

	switch status {
	case touchStatusNotFound:
		return nil, kinds.ErrTokenNotFound
	case touchStatusRevoked:
		return nil, kinds.ErrTokenRevoked
	case touchStatusExpired:
		return nil, kinds.ErrTokenExpired
	case touchStatusMismatch:
		return nil, fmt.Errorf("%w: principal mismatch", kinds.ErrTokenInvalid)
	case touchStatusOK:
	default:
		return nil, fmt.Errorf("%w: unknown touch status %d", kinds.ErrInternal, status)
	}

	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: touch reply missing record", kinds.ErrInternal)
	}
	pairs, ok := raw[1].([]interface{})
	if !ok || len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: malformed touch record", kinds.ErrInternal)
	}
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, _ := pairs[i].(string)
		v, _ := pairs[i+1].(string)
		fields[k] = v
	}
	return decodeRecord(tokenID, fields)
}

// Revoke implements Registry.
func (s *RedisRegistry) Revoke(ctx context.Context, tokenID string, now time.Time, grace time.Duration, reason string) (bool, error) {
	result, err := revokeLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(tokenID), s.expiryKey(), s.purgeKey()},
		tokenID,
		now.UnixMilli(),
		now.Add(grace).UnixMilli(),
		reason,
		s.indexPrefix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch result {
	case -1:
		return false, kinds.ErrTokenNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

// ListActive implements Registry.
//
// The set is read first and the records after, so a record revoked in between is
// filtered by its state rather than by the index.
func (s *RedisRegistry) ListActive(ctx context.Context, principalID string) ([]*Record, error) {
	tokenIDs, err := s.redis.SMembers(ctx, s.indexKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(tokenIDs) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(tokenID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]*Record, 0, len(tokenIDs))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		rec, err := decodeRecord(tokenIDs[i], fields)
		if err != nil {
			return nil, err
		}
		if rec.State == StateActive {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return issuedBefore(out[i], out[j]) })
	return out, nil
}

// ExpiredActive implements Registry.
func (s *RedisRegistry) ExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Purge implements Registry.
func (s *RedisRegistry) Purge(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.purgeKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
		members[i] = id
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.purgeKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return len(ids), nil
}

// Ping reports Redis round-trip latency.
func (s *RedisRegistry) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeRecord(tokenID string, fields map[string]string) (*Record, error) {
	rec := &Record{
		TokenID:      tokenID,
		PrincipalID:  fields["pid"],
		State:        State(fields["state"]),
		RevokeReason: fields["reason"],
	}

	var err error
	if rec.IssuedAt, err = msField(fields, "iat"); err != nil {
		return nil, err
	}
	if rec.ExpiresAt, err = msField(fields, "exp"); err != nil {
		return nil, err
	}
	if rec.LastUsedAt, err = msField(fields, "last"); err != nil {
		return nil, err
	}
	if rec.RevokedAt, err = msField(fields, "revokedAt"); err != nil {
		return nil, err
	}
	if rec.PurgeAt, err = msField(fields, "purgeAt"); err != nil {
		return nil, err
	}
	if v := fields["seq"]; v != "" {
		if rec.Seq, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: corrupt record seq", kinds.ErrInternal)
		}
	}
	if v := fields["meta"]; v != "" {
		if err := json.Unmarshal([]byte(v), &rec.Meta); err != nil {
			return nil, fmt.Errorf("%w: corrupt record meta", kinds.ErrInternal)
		}
	}
	return rec, nil
}

func msField(fields map[string]string, name string) (time.Time, error) {
	v := fields[name]
	if v == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: corrupt record field %s", kinds.ErrInternal, name)
	}
	return time.UnixMilli(ms), nil
}
