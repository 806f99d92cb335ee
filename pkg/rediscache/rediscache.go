package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"expense-ledger/internal/models"
	"expense-ledger/pkg/config"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Cache is a redis-backed read-through accelerator for idempotency
// records. Entries expire after ttl so the cache never outlives the
// authoritative store record.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(cfg *config.RedisConfig, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Get returns (nil, nil) on a cache miss.
func (c *Cache) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec models.IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Cache) Set(ctx context.Context, key string, rec *models.IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}
