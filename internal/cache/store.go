package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a JSON read-through cache over redis. All operations are
// best-effort: a nil client or a redis failure never fails the caller,
// it just means the value is recomputed.
type Store struct {
	client *redis.Client
	log    *zap.Logger
}

func NewStore(client *redis.Client, log *zap.Logger) *Store {
	return &Store{client: client, log: log.Named("cache.store")}
}

// GetJSON loads key into dest. The second return is true on a hit.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil || s.client == nil {
		return false
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores value under key with a TTL.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if s == nil || s.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete drops keys so the next read recomputes.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if s == nil || s.client == nil || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
