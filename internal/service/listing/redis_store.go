package listing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "listing:page:"

// RedisStore shares cached pages between service instances. Redis expires
// entries itself, so Sweep has nothing to do.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	}
	if err != nil {
		s.logger.Warn("listing cache read failed", zap.Error(err))
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("discarding undecodable cache entry", zap.Error(err))
		return Entry{}, false
	}
	if e.Page == nil || !s.now().Before(e.ExpiresAt) {
		return Entry{}, false
	}
	return e, true
}

func (s *RedisStore) Set(ctx context.Context, key string, e Entry) {
	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		s.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

func (s *RedisStore) Sweep(context.Context) int {
	return 0
}

func (s *RedisStore) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}
