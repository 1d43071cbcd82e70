package restaurant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// API is the pair of upstream calls a feed depends on.
type API interface {
	ListRestaurants(ctx context.Context, lat, lng float64, page, size int) ([]Record, error)
	ToggleLike(ctx context.Context, restaurantID string) error
}

// Cache keeps listing pages beyond the first in redis for a short TTL.
// Page 1 is what a refresh asks for, so it always goes upstream and drops
// the deeper pages cached against the previous ranking. Pages are scoped
// per user because the liked flag is user specific.
type Cache struct {
	next  API
	redis *redis.Client
	ttl   time.Duration
	scope string
}

func NewCache(next API, redisClient *redis.Client, ttl time.Duration, scope string) *Cache {
	return &Cache{next: next, redis: redisClient, ttl: ttl, scope: scope}
}

func (c *Cache) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *Cache) ListRestaurants(ctx context.Context, lat, lng float64, page, size int) ([]Record, error) {
	if !c.enabled() {
		return c.next.ListRestaurants(ctx, lat, lng, page, size)
	}
	if page <= 1 {
		records, err := c.next.ListRestaurants(ctx, lat, lng, page, size)
		if err != nil {
			return nil, err
		}
		if err := c.Invalidate(ctx); err != nil {
			log.Printf("restaurant cache invalidate error: %v", err)
		}
		return records, nil
	}

	key := pageKey(c.scope, lat, lng, page, size)
	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []Record
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
		log.Printf("restaurant cache: discarding corrupt page %s", key)
	case err != redis.Nil:
		log.Printf("restaurant cache get error: %v", err)
	}

	records, err := c.next.ListRestaurants(ctx, lat, lng, page, size)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(records)
	if err == nil {
		err = c.redis.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		log.Printf("restaurant cache set error: %v", err)
	}
	return records, nil
}

// ToggleLike forwards to the upstream and then drops every cached page in scope.
func (c *Cache) ToggleLike(ctx context.Context, restaurantID string) error {
	if err := c.next.ToggleLike(ctx, restaurantID); err != nil {
		return err
	}
	if c.enabled() {
		if err := c.Invalidate(ctx); err != nil {
			log.Printf("restaurant cache invalidate error: %v", err)
		}
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, scopePattern(c.scope), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func pageKey(scope string, lat, lng float64, page, size int) string {
	return fmt.Sprintf("restaurants:%s:%.4f:%.4f:%d:%d", scope, lat, lng, page, size)
}

func scopePattern(scope string) string {
	return "restaurants:" + scope + ":*"
}
