package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps redis for the two marketplace concerns that benefit from
// it: the browse cache (listing pages are read far more often than they
// change) and purchase idempotency keys at the HTTP edge. Settlement
// correctness never depends on redis; that lives in MySQL row locks.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

const browseVersionKey = "listings:browse:version"

// browseKey builds a versioned cache key. Invalidation bumps the
// version counter instead of scanning for keys; stale entries expire
// via TTL.
func (c *Client) browseKey(ctx context.Context, params string) (string, error) {
	version, err := c.rdb.Get(ctx, browseVersionKey).Int64()
	if err == redis.Nil {
		version = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("listings:browse:v%d:%s", version, params), nil
}

// GetBrowsePage returns a cached browse page, or "" on miss.
func (c *Client) GetBrowsePage(ctx context.Context, params string) (string, error) {
	key, err := c.browseKey(ctx, params)
	if err != nil {
		return "", err
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// SetBrowsePage caches a serialized browse page.
func (c *Client) SetBrowsePage(ctx context.Context, params, payload string, ttl time.Duration) error {
	key, err := c.browseKey(ctx, params)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, payload, ttl).Err()
}

// InvalidateBrowseCache drops every cached browse page by bumping the
// version counter.
func (c *Client) InvalidateBrowseCache(ctx context.Context) error {
	return c.rdb.Incr(ctx, browseVersionKey).Err()
}

// ClaimIdempotencyKey reserves an idempotency key; returns false when a
// request with the same key is already in flight or completed.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), "1", ttl).Result()
}

// ReleaseIdempotencyKey frees an idempotency key after a failed attempt
// so the client may retry.
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", key)).Err()
}
