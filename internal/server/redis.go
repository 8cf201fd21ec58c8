package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/storefront/internal/cart"
)

const (
	// Cart per owner: cart:{owner} -> JSON cart snapshot
	keyCart = "cart:%s"
)

// Guest carts expire if untouched; every save refreshes the TTL.
var ttlCart = 30 * 24 * time.Hour

// NewRedisClient connects a go-redis client.
func NewRedisClient(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// RedisStorage persists carts as JSON values in Redis.
type RedisStorage struct {
	rdb *redis.Client
}

func NewRedisStorage(rdb *redis.Client) *RedisStorage {
	return &RedisStorage{rdb: rdb}
}

func (s *RedisStorage) Load(ctx context.Context, owner string) (*cart.Cart, error) {
	data, err := s.rdb.Get(ctx, fmt.Sprintf(keyCart, owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return &c, nil
}

func (s *RedisStorage) Save(ctx context.Context, owner string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(keyCart, owner), data, ttlCart).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, owner string) error {
	if err := s.rdb.Del(ctx, fmt.Sprintf(keyCart, owner)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
