package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ interfaces.IdempotencyStore = (*redisIdempotencyStore)(nil)

// pendingMarker never collides with a stored response, responses are JSON objects.
const pendingMarker = "__pending__"

// releaseScript deletes the key only while it still holds the pending marker,
// so a late release cannot drop a completed response.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisIdempotencyStore stores responses under "<prefix>:<key>".
func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string, logger *zap.Logger) interfaces.IdempotencyStore {
	return &redisIdempotencyStore{
		client: client,
		prefix: prefix,
		logger: logger.Named("RedisIdempotencyStore"),
	}
}

func (s *redisIdempotencyStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pendingMarker, ttl).Result()
	if err != nil {
		s.logger.Error("Failed to reserve idempotency key", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !ok {
		s.logger.Debug("Idempotency key already taken", zap.String("key", key))
	}
	return ok, nil
}

func (s *redisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		s.logger.Error("Failed to read idempotent response", zap.Error(err), zap.String("key", key))
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if string(data) == pendingMarker {
		return nil, false, models.ErrRequestInProgress
	}
	return data, true, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), response, ttl).Err(); err != nil {
		s.logger.Error("Failed to store idempotent response", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, pendingMarker).Err(); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
