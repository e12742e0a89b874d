package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the part of the go-redis API the store uses.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps documents in Redis and lets them expire after TTL.
type RedisStore struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	// URL is a redis:// connection URL.
	URL    string
	Prefix string
	// TTL of zero keeps documents forever.
	TTL time.Duration
}

// NewRedisStore connects to the server at cfg.URL. The returned close
// function releases the connection pool.
func NewRedisStore(cfg RedisConfig) (*RedisStore, func() error, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return newRedisStore(client, cfg), client.Close, nil
}

func newRedisStore(client redisClient, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "pdfsnap:file:"
	}
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

func (s *RedisStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	key, err := newKey(name)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return key, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}
