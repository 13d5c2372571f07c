package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider stores each namespace as one Redis hash, so several console
// instances behind a load balancer share their visitors' storage.
type RedisProvider struct {
	client    *redis.Client
	keyPrefix string
	idleTTL   time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to the namespace ID. Default "pace:storage:".
	KeyPrefix string

	// IdleTTL expires a namespace that has not been written for this long.
	// Zero keeps namespaces forever.
	IdleTTL time.Duration
}

func NewRedisProvider(ctx context.Context, opts RedisOptions) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisProviderFromClient(client, opts.KeyPrefix, opts.IdleTTL), nil
}

func NewRedisProviderFromClient(client *redis.Client, keyPrefix string, idleTTL time.Duration) *RedisProvider {
	if keyPrefix == "" {
		keyPrefix = "pace:storage:"
	}
	return &RedisProvider{client: client, keyPrefix: keyPrefix, idleTTL: idleTTL}
}

func (p *RedisProvider) Scope(id string) Store {
	return &redisStore{client: p.client, key: p.keyPrefix + id, idleTTL: p.idleTTL}
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

type redisStore struct {
	client  *redis.Client
	key     string
	idleTTL time.Duration
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, key, value)
	if s.idleTTL > 0 {
		pipe.Expire(ctx, s.key, s.idleTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
