package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua helper shared by the scripts below. It mirrors the binary layout in
// encoder.go: version byte, 1-byte user id length, user id, 2-byte big-endian
// token length, token, 8-byte big-endian expiry.
const parseRecordLua = `
local function parse_record(data)
  local version = string.byte(data, 1)
  if not version or version ~= 1 then
    return nil
  end

  local user_len = string.byte(data, 2)
  if not user_len then
    return nil
  end
  local idx = 3 + user_len

  local hi = string.byte(data, idx)
  local lo = string.byte(data, idx + 1)
  if not lo then
    return nil
  end
  local token_len = hi * 256 + lo
  idx = idx + 2
  if #data < idx + token_len - 1 then
    return nil
  end

  return {
    user_id = string.sub(data, 3, 2 + user_len),
    token = string.sub(data, idx, idx + token_len - 1)
  }
end
`

// Replace-on-put: drop the previous token index entry (if any), then write
// the new record and index under one script so no reader sees a gap or two
// live records for one user.
const putRecordScript = parseRecordLua + `
local old = redis.call("GET", KEYS[1])
if old then
  local parsed = parse_record(old)
  if parsed and parsed.token then
    redis.call("DEL", ARGV[4] .. parsed.token)
  end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`

const deleteByUserScript = parseRecordLua + `
local blob = redis.call("GET", KEYS[1])
if not blob then
  return 0
end
local parsed = parse_record(blob)
if parsed and parsed.token then
  redis.call("DEL", ARGV[1] .. parsed.token)
end
redis.call("DEL", KEYS[1])
return 1
`

const deleteByTokenScript = parseRecordLua + `
local user_id = redis.call("GET", KEYS[1])
if not user_id then
  return 0
end
redis.call("DEL", KEYS[1])
local user_key = ARGV[2] .. user_id
local blob = redis.call("GET", user_key)
if blob then
  local parsed = parse_record(blob)
  if parsed and parsed.token == ARGV[1] then
    redis.call("DEL", user_key)
  end
end
return 1
`

var (
	putRecordLua     = redis.NewScript(putRecordScript)
	deleteByUserLua  = redis.NewScript(deleteByUserScript)
	deleteByTokenLua = redis.NewScript(deleteByTokenScript)
)

// RedisStore is a Redis-backed refresh-token store. Each user's record lives
// under a user key; a token index key maps the literal token string back to
// its user for FindByToken and DeleteByToken.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore with the given key namespace prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *RedisStore) tokenKeyPrefix() string {
	return s.prefix + ":t:"
}

func (s *RedisStore) tokenKey(tokenStr string) string {
	return s.tokenKeyPrefix() + tokenStr
}

// Put atomically replaces the user's record. Both the record and its token
// index expire with the token itself.
func (s *RedisStore) Put(ctx context.Context, userID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("refresh record expiry is in the past")
	}

	blob, err := Encode(&Record{Token: token, UserID: userID, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return err
	}

	err = putRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.tokenKey(token)},
		blob,
		userID,
		ttl.Milliseconds(),
		s.tokenKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// FindByUser returns the user's live record or ErrNotFound.
func (s *RedisStore) FindByUser(ctx context.Context, userID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	record, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if record.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	return record, nil
}

// FindByToken resolves the token index and verifies the resolved record
// still carries this exact token before returning it. A stale index entry
// (record already rotated) reads as not found.
func (s *RedisStore) FindByToken(ctx context.Context, tokenStr string) (*Record, error) {
	userID, err := s.redis.Get(ctx, s.tokenKey(tokenStr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	record, err := s.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record.Token != tokenStr {
		return nil, ErrNotFound
	}

	return record, nil
}

// DeleteByUser removes the user's record and its token index entry.
func (s *RedisStore) DeleteByUser(ctx context.Context, userID string) error {
	err := deleteByUserLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID)},
		s.tokenKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteByToken removes the record carrying this token. The user record is
// only dropped when it still carries the presented token, so revoking a
// stale token never kills a newer session.
func (s *RedisStore) DeleteByToken(ctx context.Context, tokenStr string) error {
	err := deleteByTokenLua.Run(
		ctx,
		s.redis,
		[]string{s.tokenKey(tokenStr)},
		tokenStr,
		s.prefix+":u:",
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports store reachability and round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
