// Package cache implements short-lived request state on Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long a checkout response can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// lockTTL bounds how long an unfinished request holds its key.
const lockTTL = 30 * time.Second

// StoredResponse is a response captured for replay. Fingerprint identifies
// the request that produced it so a reused key can be told apart from a
// retry.
type StoredResponse struct {
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// IdempotencyStore records checkout responses by client supplied key.
type IdempotencyStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore returns a store that keeps responses for ttl.
func NewIdempotencyStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *IdempotencyStore) lockKey(scope, key string) string {
	return fmt.Sprintf("%s:idemp:lock:%s:%s", s.prefix, scope, key)
}

func (s *IdempotencyStore) respKey(scope, key string) string {
	return fmt.Sprintf("%s:idemp:resp:%s:%s", s.prefix, scope, key)
}

// Recall returns the stored response for key, if any.
func (s *IdempotencyStore) Recall(ctx context.Context, scope, key string) (*StoredResponse, bool, error) {
	raw, err := s.rdb.Get(ctx, s.respKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "recall")
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, errors.Wrap(err, "decode stored response")
	}
	return &resp, true, nil
}

// TryLock claims key for an in-flight request. It reports false when
// another request already holds it.
func (s *IdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.lockKey(scope, key), "1", lockTTL).Result()
	if err != nil {
		return false, errors.Wrap(err, "lock")
	}
	return ok, nil
}

// Remember stores resp for key and releases the lock.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, key string, resp StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.respKey(scope, key), raw, s.ttl)
		p.Del(ctx, s.lockKey(scope, key))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "remember")
	}
	return nil
}

// Release drops the lock without storing a response, so the client may
// retry a failed request with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.rdb.Del(ctx, s.lockKey(scope, key)).Err(); err != nil {
		return errors.Wrap(err, "release")
	}
	return nil
}

// Ping checks the Redis connection.
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
