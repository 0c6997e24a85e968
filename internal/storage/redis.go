package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	logx "tgnotifier/pkg/logx"
)

// DefaultRedisPrefix namespaces the settings hash.
const DefaultRedisPrefix = "tgnotifier:"

// redisStore keeps every setting as a field of one hash.
type redisStore struct {
	rdb *redis.Client
	key string
	log logx.Logger
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrNoDSN
	}
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisStore(rdb, cfg.Prefix, log), nil
}

func newRedisStore(rdb *redis.Client, prefix string, log logx.Logger) *redisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisStore{rdb: rdb, key: prefix + "settings", log: log}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, err := s.rdb.HGet(ctx, s.key, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	return s.rdb.HSet(ctx, s.key, key, value).Err()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			fields = append(fields, k)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HDel(ctx, s.key, fields...).Err()
}

func (s *redisStore) Close() error { return s.rdb.Close() }
