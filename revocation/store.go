package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when Config.Prefix is empty.
const DefaultPrefix = "gojwt:rv:"

// minTTL keeps a revocation alive for tokens that are already at or past
// their exp; Redis rejects a zero expiry.
const minTTL = time.Second

// revokeScript sets the entry unless it already outlives the requested TTL,
// so concurrent revokes can only extend an entry.
//
// KEYS[1] entry key; ARGV[1] value; ARGV[2] TTL in milliseconds.
// Returns 1 when written, 0 when the existing entry was kept.
const revokeScript = `
local current = redis.call("PTTL", KEYS[1])
if current > tonumber(ARGV[2]) then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// Config holds store tuning parameters.
type Config struct {
	Prefix string
	// Now overrides time.Now when computing TTLs.
	Now func() time.Time
}

// RedisStore records revoked token ids in Redis.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] backed by the given Redis client.
func NewRedisStore(redisClient redis.UniversalClient, cfg Config) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

// Revoke marks jti revoked until the given instant. Revoking twice extends
// the entry to the later of the two instants.
func (s *RedisStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return ErrEmptyTokenID
	}

	ttl := until.Sub(s.now())
	if ttl < minTTL {
		ttl = minTTL
	}

	err := revokeLua.Run(ctx, s.redis, []string{s.key(jti)}, until.Unix(), ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether jti is on the deny-list.
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Unrevoke removes jti from the deny-list. Missing entries are not an error.
func (s *RedisStore) Unrevoke(ctx context.Context, jti string) error {
	if jti == "" {
		return ErrEmptyTokenID
	}
	if err := s.redis.Del(ctx, s.key(jti)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + jti
}
