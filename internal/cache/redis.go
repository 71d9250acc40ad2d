// Package cache is a read-through content cache in front of the blob store.
// Keys are content checksums, so a stale entry is impossible: a changed
// document has a different key.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// ContentCache caches markdown bodies by checksum. All operations are best
// effort; callers treat a miss and a cache failure identically.
type ContentCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewContentCache(redisURL string) (*ContentCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &ContentCache{client: client, prefix: "content:", ttl: defaultTTL}, nil
}

// NewContentCacheWithClient wraps an existing client, for tests.
func NewContentCacheWithClient(client *redis.Client) *ContentCache {
	return &ContentCache{client: client, prefix: "content:", ttl: defaultTTL}
}

func (c *ContentCache) key(checksum string) string {
	return c.prefix + checksum
}

// Get returns the cached body for a checksum. The second result reports a hit.
func (c *ContentCache) Get(ctx context.Context, checksum string) (string, bool) {
	raw, err := c.client.Get(ctx, c.key(checksum)).Result()
	if err != nil {
		return "", false
	}
	return raw, true
}

// Put stores a body under its checksum. Errors are swallowed: the blob store
// remains the source of truth either way.
func (c *ContentCache) Put(ctx context.Context, checksum, raw string) {
	_ = c.client.Set(ctx, c.key(checksum), raw, c.ttl).Err()
}

// Invalidate drops one checksum entry, used after deletes.
func (c *ContentCache) Invalidate(ctx context.Context, checksum string) {
	_ = c.client.Del(ctx, c.key(checksum)).Err()
}

func (c *ContentCache) Close() error {
	return c.client.Close()
}
