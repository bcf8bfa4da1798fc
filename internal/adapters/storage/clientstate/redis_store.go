package clientstate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long an idle client's state survives in Redis.
const DefaultRedisTTL = 30 * 24 * time.Hour

// RedisStore implements Store with one Redis hash per client.
// Key format: testinsure:client:<client id>
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore; ttl <= 0 selects DefaultRedisTTL.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get retrieves the values stored for the given keys.
// PRE: clientID is non-empty
// POST: returns only the keys that exist
func (s *RedisStore) Get(ctx context.Context, clientID string, keys ...string) (map[string]string, error) {
	if clientID == "" {
		return nil, ErrEmptyClientID
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key(clientID), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// SetMany writes all values in one MULTI/EXEC block and refreshes the TTL.
// PRE: clientID is non-empty
// POST: either every value is persisted or none is
func (s *RedisStore) SetMany(ctx context.Context, clientID string, values map[string]string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}
	if len(values) == 0 {
		return nil
	}
	key := s.key(clientID)
	pairs := make([]any, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, pairs...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Delete removes the given fields from the client's hash.
// PRE: clientID is non-empty
// POST: keys are absent; deleting absent keys succeeds
func (s *RedisStore) Delete(ctx context.Context, clientID string, keys ...string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key(clientID), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (s *RedisStore) key(clientID string) string {
	return "testinsure:client:" + clientID
}
