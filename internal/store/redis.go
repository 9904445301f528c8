package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each record in a hash named "<table>:<timestamp>".
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	l      *zap.Logger
}

var _ Store = &RedisStore{}

func NewRedisStore(rdb redis.UniversalClient, table string, l *zap.Logger) *RedisStore {
	if l == nil {
		l = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, prefix: table + ":", l: l}
}

func (s *RedisStore) key(ts string) string { return s.prefix + ts }

func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	if err := s.rdb.HSet(ctx, s.key(rec.Key()), rec.fields()).Err(); err != nil {
		s.l.Error("Error putting item", zap.String("timestamp", rec.Timestamp), zap.Error(err))
		return fmt.Errorf("redis: hset: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		s.l.Error("Error getting item", zap.String("timestamp", key), zap.Error(err))
		return Record{}, false, fmt.Errorf("redis: hgetall: %w", err)
	}
	if len(vals) == 0 {
		return Record{}, false, nil
	}
	return recordFromFields(vals), true, nil
}

func (s *RedisStore) Scan(ctx context.Context, limit int) ([]Record, error) {
	recs := []Record{}
	if limit <= 0 {
		return recs, nil
	}
	limit = clampLimit(limit)

	keys, err := s.scanKeys(ctx, limit)
	if err != nil {
		s.l.Error("Error scanning keys", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("redis: scan: %w", err)
	}
	if len(keys) == 0 {
		return recs, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		s.l.Error("Error reading records", zap.Int("count", len(keys)), zap.Error(err))
		return nil, fmt.Errorf("redis: hgetall pipeline: %w", err)
	}

	for _, cmd := range cmds {
		if vals := cmd.Val(); len(vals) > 0 {
			recs = append(recs, recordFromFields(vals))
		}
	}
	return recs, nil
}

// scanBatch is the SCAN COUNT hint and the initial key buffer size.
const scanBatch = 512

// scanKeys walks the keyspace with SCAN until limit distinct record keys are
// found or the cursor wraps.
func (s *RedisStore) scanKeys(ctx context.Context, limit int) ([]string, error) {
	batchSize := min(limit, scanBatch)
	seen := make(map[string]struct{}, batchSize)
	keys := make([]string, 0, batchSize)
	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", int64(batchSize)).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
			if len(keys) == limit {
				return keys, nil
			}
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
