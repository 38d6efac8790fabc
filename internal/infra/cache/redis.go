package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/infra/metrics"
)

const opTimeout = 3 * time.Second

// RedisCache реализует domain.Cache через Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	target string
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis создаёт кэш. Все ключи получают префикс.
func NewRedis(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, target: client.Options().Addr}
}

// Connect открывает клиент и проверяет соединение.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Once выполняет fn, только если ключ ещё не занят. Ключ остаётся занятым и при ошибке fn.
func (c *RedisCache) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	start := time.Now()
	ok, err := c.client.SetNX(opCtx, c.prefix+key, "1", ttl).Result()
	cancel()
	metrics.ObserveNetworkRequest("redis", "setnx", c.target, start, err)
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil
	}
	return fn()
}

// Set задаёт значение.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	start := time.Now()
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	metrics.ObserveNetworkRequest("redis", "set", c.target, start, err)
	return err
}

// Get возвращает значение; для отсутствующего ключа nil без ошибки.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	start := time.Now()
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", c.target, start, nil)
		return nil, nil
	}
	metrics.ObserveNetworkRequest("redis", "get", c.target, start, err)
	return val, err
}
