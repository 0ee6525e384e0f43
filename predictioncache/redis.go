package predictioncache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"detection-api/fingerprint"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore is the shared cache tier. Multiple broker and client
// processes point at the same instance with no locking discipline.
type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewRedisStore(ctx context.Context, redisUrl string, keyPrefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb, keyPrefix: keyPrefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, fp fingerprint.Fingerprint) (float64, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(fp)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache get %s: %w", fp, err)
	}

	probability, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cache entry %s is not a float: %w", fp, err)
	}
	return probability, true, nil
}

func (s *RedisStore) Set(ctx context.Context, fp fingerprint.Fingerprint, probability float64) error {
	value := strconv.FormatFloat(probability, 'f', -1, 64)
	if err := s.rdb.Set(ctx, s.key(fp), value, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", fp, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(fp fingerprint.Fingerprint) string {
	return s.keyPrefix + fp.String()
}
