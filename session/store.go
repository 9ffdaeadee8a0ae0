// Package session implements the Redis side of the auth subsystem: the
// TTL-bounded revocation blacklist and the per-subject refresh pointer,
// including the atomic compare-and-rotate used by token refresh.
//
// Every entry is written with a TTL equal to the remaining lifetime of the
// token it refers to, so the store is self-expiring and needs no sweep
// process. The store performs no caching and no retries of its own; retry
// policy belongs to the redis client.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport-level Redis failure, including
// operation timeouts.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrPointerMismatch is returned by Rotate when the presented token id is
// not the subject's current refresh pointer: the session was rotated by a
// concurrent refresh or replaced by a newer login.
var ErrPointerMismatch = errors.New("refresh pointer mismatch")

// ErrPointerNotFound is returned by Rotate when the subject has no current
// refresh pointer at all (logged out, expired, or never logged in).
var ErrPointerNotFound = errors.New("refresh pointer not found")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

// rotateScript is the single conditional update behind refresh rotation.
// The pointer comparison, pointer overwrite, and blacklisting of the old
// token id execute as one Redis script, so two concurrent refreshes with
// the same token have exactly one winner.
//
// KEYS[1] pointer key, KEYS[2] blacklist key of the presented token id.
// ARGV[1] presented token id, ARGV[2] next token id,
// ARGV[3] pointer TTL ms, ARGV[4] remaining lifetime of the old token ms.
const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[4])
end
return 2
`

var rotateLua = redis.NewScript(rotateScript)

// clearScript revokes up to two token ids and conditionally deletes the
// subject's refresh pointer, as one script so logout cannot be half
// applied. A TTL of zero or less means the token is already expired and
// nothing is written for it.
//
// KEYS[1] pointer key, KEYS[2] access blacklist key, KEYS[3] refresh
// blacklist key. ARGV[1] access TTL ms, ARGV[2] refresh TTL ms,
// ARGV[3] refresh token id ("" when absent).
const clearScript = `
if tonumber(ARGV[1]) > 0 then
  redis.call("SET", KEYS[2], "1", "PX", ARGV[1])
end
if tonumber(ARGV[2]) > 0 then
  redis.call("SET", KEYS[3], "1", "PX", ARGV[2])
end
if ARGV[3] ~= "" then
  local current = redis.call("GET", KEYS[1])
  if current == ARGV[3] then
    redis.call("DEL", KEYS[1])
  end
end
return 1
`

var clearLua = redis.NewScript(clearScript)

// Store wraps a Redis client with the key layout and operations of the
// revocation blacklist and refresh-pointer records. All methods bound the
// round trip with the configured operation timeout.
type Store struct {
	redis     *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a Store. prefix namespaces all keys; opTimeout bounds
// each Redis call.
func NewStore(client *redis.Client, prefix string, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) blacklistKey(tokenID string) string {
	return s.prefix + ":bl:" + tokenID
}

func (s *Store) pointerKey(subject string) string {
	return s.prefix + ":rt:" + subject
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Blacklist records a revocation entry for tokenID with the given TTL.
// Idempotent; a TTL of zero or less is a no-op because the token can no
// longer validate anyway.
func (s *Store) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.blacklistKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsBlacklisted reports whether tokenID has a live revocation entry.
func (s *Store) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.blacklistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// SavePointer records tokenID as the subject's current refresh token,
// overwriting any previous pointer. Called at login; the overwrite is what
// supersedes an earlier session under the single-session model.
func (s *Store) SavePointer(ctx context.Context, subject, tokenID string, ttl time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.pointerKey(subject), tokenID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CurrentPointer returns the subject's current refresh token id, or
// ErrPointerNotFound when none exists.
func (s *Store) CurrentPointer(ctx context.Context, subject string) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	val, err := s.redis.Get(ctx, s.pointerKey(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrPointerNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return val, nil
}

// Rotate atomically replaces the subject's refresh pointer with nextID,
// but only if presentedID is still current, and blacklists presentedID for
// its remaining lifetime in the same script. Returns ErrPointerNotFound or
// ErrPointerMismatch when the conditional check fails.
func (s *Store) Rotate(ctx context.Context, subject, presentedID, nextID string, pointerTTL, revokeTTL time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	status, err := rotateLua.Run(ctx, s.redis,
		[]string{s.pointerKey(subject), s.blacklistKey(presentedID)},
		presentedID,
		nextID,
		pointerTTL.Milliseconds(),
		revokeTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrPointerNotFound
	case rotateStatusMismatch:
		return ErrPointerMismatch
	default:
		return fmt.Errorf("unexpected rotate status %d", status)
	}
}

// Clear revokes the given access and refresh token ids and deletes the
// subject's refresh pointer if it still names refreshID, all in one
// script. Any of the ids may be empty; TTLs at or below zero write
// nothing. Idempotent: clearing an already cleared session is harmless.
func (s *Store) Clear(ctx context.Context, subject, accessID string, accessTTL time.Duration, refreshID string, refreshTTL time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if accessTTL <= 0 {
		accessTTL = 0
	}
	if refreshTTL <= 0 {
		refreshTTL = 0
	}

	err := clearLua.Run(ctx, s.redis,
		[]string{
			s.pointerKey(subject),
			s.blacklistKey(nonEmptyKeyPart(accessID)),
			s.blacklistKey(nonEmptyKeyPart(refreshID)),
		},
		chooseTTL(accessID, accessTTL),
		chooseTTL(refreshID, refreshTTL),
		refreshID,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeletePointer removes the subject's refresh pointer unconditionally.
func (s *Store) DeletePointer(ctx context.Context, subject string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.pointerKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// nonEmptyKeyPart keeps Lua KEYS well formed when a token id is absent;
// the script never writes the placeholder because its TTL argument is zero.
func nonEmptyKeyPart(tokenID string) string {
	if tokenID == "" {
		return "-"
	}
	return tokenID
}

func chooseTTL(tokenID string, ttl time.Duration) int64 {
	if tokenID == "" {
		return 0
	}
	return ttl.Milliseconds()
}
