// Package redisclient caches displayed stock quantities so catalog
// listings do not hammer the products table from every terminal. The
// database remains the source of truth; the cache is refreshed from
// committed StockChanged events and repopulated at startup.
package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pos-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const stockTTL = 24 * time.Hour

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock records the committed quantity for a product.
func (c *Client) SetStock(ctx context.Context, productID int64, quantity int) error {
	return c.rdb.Set(ctx, stockKey(productID), quantity, stockTTL).Err()
}

// GetStock returns the cached quantity. The second return value is false
// on a cache miss.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock cache entry for product %d: %w", productID, err)
	}
	return qty, true, nil
}

// SyncStock warms the cache from the product catalog.
func (c *Client) SyncStock(ctx context.Context, products []models.Product) error {
	pipe := c.rdb.Pipeline()
	for _, p := range products {
		pipe.Set(ctx, stockKey(p.ProductID), p.QuantityInStock, stockTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
