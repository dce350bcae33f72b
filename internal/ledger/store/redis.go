// internal/ledger/store/redis.go
package store

import (
	"context"
	"errors"

	"subscription-ledger/internal/common/database"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over the shared Redis client.
type RedisStore struct {
	client *database.RedisClient
}

func NewRedisStore(client *database.RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value)
}

func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	return s.client.Has(ctx, key)
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...)
}

// Apply executes all writes and deletes in a single transactional
// pipeline. Redis queues the commands and runs them back to back, so no
// other call observes a partially applied operation.
func (s *RedisStore) Apply(ctx context.Context, sets []KV, dels []string) error {
	if len(sets) == 0 && len(dels) == 0 {
		return nil
	}

	pipe := s.client.GetClient().TxPipeline()
	for _, kv := range sets {
		pipe.Set(ctx, kv.Key, kv.Value, 0)
	}
	if len(dels) > 0 {
		pipe.Del(ctx, dels...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
