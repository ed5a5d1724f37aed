package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"launchScope/internal/model"
)

const keyPrefix = "trades:"

// Cache stores each pool's reconciled trade set as one JSON value in
// Redis. It is a best-effort collaborator: the reconciler tolerates
// every failure mode here.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &model.NetworkError{Op: "redis ping", Err: err}
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// ReadTrades loads the cached trade set for a pool.
func (c *Cache) ReadTrades(ctx context.Context, pool string) ([]model.TradeRecord, error) {
	data, err := c.client.Get(ctx, cacheKey(pool)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, &model.NetworkError{Op: "redis get", Err: err}
	}

	var records []model.TradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode cached trades: %w", err)
	}
	return records, nil
}

// WriteTrades replaces the cached trade set for a pool.
func (c *Cache) WriteTrades(ctx context.Context, pool string, records []model.TradeRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode trades: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(pool), data, c.ttl).Err(); err != nil {
		return &model.NetworkError{Op: "redis set", Err: err}
	}
	return nil
}

func cacheKey(pool string) string {
	return keyPrefix + strings.ToLower(pool)
}
