package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outcome is the result of checking a submitted code against the store.
type Outcome int

const (
	OutcomeMissing Outcome = iota
	OutcomeMatched
	OutcomeExhausted
	OutcomeMismatch
)

// Store keeps at most one pending code per (type, email).
type Store interface {
	Put(ctx context.Context, typ Type, email string, hash string, ttl time.Duration) error
	// Check compares hash with the pending code and settles the attempt
	// in one step: a match or an exhausted allowance removes the code,
	// a mismatch costs one attempt.
	Check(ctx context.Context, typ Type, email string, hash string, allowed int) (Outcome, error)
	Delete(ctx context.Context, typ Type, email string) error
}

// RedisStore keeps each code as a hash {hash, attempts} with the code's TTL.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:"}
}

func (s *RedisStore) key(typ Type, email string) string {
	return s.prefix + string(typ) + ":" + email
}

func (s *RedisStore) Put(ctx context.Context, typ Type, email string, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("otp: ttl must be positive")
	}
	key := s.key(typ, email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// checkScript runs server side so concurrent guesses are serialized.
// HINCRBY leaves the key's TTL untouched.
var checkScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'hash')
if not stored then
	return 0
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
if attempts >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	return 2
end
if stored == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return 3
`)

func (s *RedisStore) Check(ctx context.Context, typ Type, email string, hash string, allowed int) (Outcome, error) {
	n, err := checkScript.Run(ctx, s.client, []string{s.key(typ, email)}, hash, allowed).Int()
	if err != nil {
		return OutcomeMissing, err
	}
	return Outcome(n), nil
}

func (s *RedisStore) Delete(ctx context.Context, typ Type, email string) error {
	return s.client.Del(ctx, s.key(typ, email)).Err()
}
