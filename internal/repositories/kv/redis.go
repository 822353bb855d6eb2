package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each key as a plain string value under prefix.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// OpenRedis connects using a redis:// URL and checks the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, expected, value []byte) error {
	return s.CompareAndSwapBatch(ctx, []Swap{{Key: key, Expected: expected, Value: value}})
}

// CompareAndSwapBatch watches every key, verifies the expected values and
// commits all writes in one MULTI/EXEC. A concurrent write to any watched
// key aborts the transaction.
func (s *RedisStore) CompareAndSwapBatch(ctx context.Context, swaps []Swap) error {
	keys := make([]string, len(swaps))
	for i, sw := range swaps {
		keys[i] = s.key(sw.Key)
	}

	txf := func(tx *redis.Tx) error {
		for i, sw := range swaps {
			cur, err := tx.Get(ctx, keys[i]).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				if sw.Expected != nil {
					return common.ErrVersionConflict
				}
			case err != nil:
				return err
			case sw.Expected == nil || !bytes.Equal(cur, sw.Expected):
				return common.ErrVersionConflict
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, sw := range swaps {
				if sw.Value == nil {
					pipe.Del(ctx, keys[i])
					continue
				}
				pipe.Set(ctx, keys[i], sw.Value, 0)
			}
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, keys...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, common.ErrVersionConflict):
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("failed to swap kv: %w", err)
	}
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan kv keys: %w", err)
	}
	return out, nil
}

func (s *RedisStore) List(ctx context.Context) (map[string][]byte, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		result[strings.TrimPrefix(keys[i], s.prefix)] = []byte(str)
	}
	return result, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
