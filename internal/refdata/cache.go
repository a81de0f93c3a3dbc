package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheKey is the Redis key the serialised record set is stored under.
const DefaultCacheKey = "refdata:snapshot:v1"

// Cache stores the serialised record set in Redis so that replicas share one database read per TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

// NewCache constructs a cache. A nil client yields a cache that always misses.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, key: DefaultCacheKey}
}

// Get returns the cached records and whether the key existed.
func (c *Cache) Get(ctx context.Context) (Records, bool, error) {
	if c == nil || c.client == nil {
		return Records{}, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Records{}, false, nil
		}
		return Records{}, false, err
	}
	var records Records
	if err := json.Unmarshal(data, &records); err != nil {
		return Records{}, false, err
	}
	return records, true, nil
}

// Set stores records with the configured TTL.
func (c *Cache) Set(ctx context.Context, records Records) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

// Invalidate drops the cached record set, used after reseeding.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key).Err()
}
