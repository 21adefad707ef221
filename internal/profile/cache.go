package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aether-community/backend/internal/models"
)

// DefaultCacheTTL bounds how stale a cached profile view can get.
const DefaultCacheTTL = 5 * time.Minute

const keyPrefix = "profile:"

// Cache stores rendered profile views keyed by member code.
type Cache interface {
	Get(ctx context.Context, code string) (*models.Member, bool, error)
	Set(ctx context.Context, m *models.Member) error
	Invalidate(ctx context.Context, code string) error
}

// RedisCache keeps profile views in Redis as JSON.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, code string) (*models.Member, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var m models.Member
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("decode cached profile: %w", err)
	}
	return &m, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, m *models.Member) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+m.Code, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate implements Cache.
func (c *RedisCache) Invalidate(ctx context.Context, code string) error {
	if err := c.rdb.Del(ctx, keyPrefix+code).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryCache is an in-process cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	member  *models.Member
	expires time.Time
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, code string) (*models.Member, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, code)
		return nil, false, nil
	}
	return e.member.Clone(), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, m *models.Member) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[m.Code] = memoryEntry{member: m.Clone(), expires: c.now().Add(c.ttl)}
	return nil
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
	return nil
}
