package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/satriojati/storymap/internal/common"
)

// RedisStore is an alternative cache backend for setups where the agent
// should not own local disk state. Entries live under cache:<bucket>:<key>;
// a per-bucket sorted set ordered by store time drives eviction.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func entryKey(bucket, key string) string { return "cache:" + bucket + ":" + key }
func indexKey(bucket string) string      { return "cacheindex:" + bucket }
func bucketsKey() string                 { return "cachebuckets" }

func (s *RedisStore) Get(ctx context.Context, bucket, key string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, entryKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	e := &Entry{}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, bucket, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, entryKey(bucket, key), raw, 0)
	pipe.ZAdd(ctx, indexKey(bucket), redis.Z{Score: float64(e.StoredAt.UnixNano()), Member: key})
	pipe.SAdd(ctx, bucketsKey(), bucket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, bucket, key string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, entryKey(bucket, key))
	pipe.ZRem(ctx, indexKey(bucket), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Trim(ctx context.Context, bucket string, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	// Oldest first; everything below the newest maxEntries goes.
	victims, err := s.rdb.ZRange(ctx, indexKey(bucket), 0, int64(-maxEntries-1)).Result()
	if err != nil {
		return fmt.Errorf("failed to rank bucket %s: %w", bucket, err)
	}
	for _, key := range victims {
		if err := s.Delete(ctx, bucket, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) Buckets(ctx context.Context) ([]string, error) {
	buckets, err := s.rdb.SMembers(ctx, bucketsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	return buckets, nil
}

func (s *RedisStore) DropBucket(ctx context.Context, bucket string) error {
	keys, err := s.rdb.ZRange(ctx, indexKey(bucket), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}
	pipe := s.rdb.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, entryKey(bucket, key))
	}
	pipe.Del(ctx, indexKey(bucket))
	pipe.SRem(ctx, bucketsKey(), bucket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop bucket %s: %w", bucket, err)
	}
	return nil
}
