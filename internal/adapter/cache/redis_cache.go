package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

const bookKey = "book:snapshot"

var _ port.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func (c *RedisCache) SetBook(ctx context.Context, b *domain.BookSnapshot) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookKey, data, c.ttl).Err()
}

func (c *RedisCache) GetBook(ctx context.Context) (*domain.BookSnapshot, error) {
	data, err := c.client.Get(ctx, bookKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b domain.BookSnapshot
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, bookKey).Err()
}
