package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when the URL names none.
const DefaultRedisKey = "vizframe:samples"

// RedisStore keeps samples in a redis list, one JSON document per element.
type RedisStore struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisStore creates a store on an existing client. Close leaves the
// client open.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Key returns the list key.
func (s *RedisStore) Key() string { return s.key }

// Append pushes the samples to the tail of the list.
func (s *RedisStore) Append(ctx context.Context, samples ...Sample) error {
	if len(samples) == 0 {
		return nil
	}
	values := make([]any, len(samples))
	for i, sample := range samples {
		data, err := json.Marshal(sample)
		if err != nil {
			return err
		}
		values[i] = data
	}
	return RetryWithBackoff(ctx, func() error {
		return redisRetryable(s.client.RPush(ctx, s.key, values...).Err())
	})
}

// Load reads the whole list.
func (s *RedisStore) Load(ctx context.Context) ([]Sample, error) {
	var raw []string
	err := RetryWithBackoff(ctx, func() error {
		var err error
		raw, err = s.client.LRange(ctx, s.key, 0, -1).Result()
		return redisRetryable(err)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Sample, 0, len(raw))
	for i, item := range raw {
		var sample Sample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", s.key, i, err)
		}
		out = append(out, sample)
	}
	return out, nil
}

// Close closes the client if Open created it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

// redisRetryable marks connection failures as retryable. Server replies and
// context errors are final.
func redisRetryable(err error) error {
	if err == nil {
		return nil
	}
	var reply redis.Error
	if errors.As(err, &reply) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Retryable(err)
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
