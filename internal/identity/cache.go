// AngelaMos | 2026
// cache.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// TenantCache memoizes identity -> tenant resolutions. Get returns "" on a
// miss. Only non-empty tenant ids are ever stored.
type TenantCache interface {
	Get(ctx context.Context, identityID string) (string, error)
	Set(ctx context.Context, identityID, tenantID string) error
	Delete(ctx context.Context, identityID string) error
}

const tenantCachePrefix = "tenant:identity:"

type RedisTenantCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTenantCache(client *redis.Client, ttl time.Duration) *RedisTenantCache {
	return &RedisTenantCache{client: client, ttl: ttl}
}

func (c *RedisTenantCache) Get(ctx context.Context, identityID string) (string, error) {
	val, err := c.client.Get(ctx, tenantCachePrefix+identityID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tenant cache get: %w", err)
	}
	return val, nil
}

func (c *RedisTenantCache) Set(ctx context.Context, identityID, tenantID string) error {
	if tenantID == "" {
		return nil
	}
	if err := c.client.Set(ctx, tenantCachePrefix+identityID, tenantID, c.ttl).Err(); err != nil {
		return fmt.Errorf("tenant cache set: %w", err)
	}
	return nil
}

func (c *RedisTenantCache) Delete(ctx context.Context, identityID string) error {
	if err := c.client.Del(ctx, tenantCachePrefix+identityID).Err(); err != nil {
		return fmt.Errorf("tenant cache delete: %w", err)
	}
	return nil
}

type MemoryTenantCache struct {
	items *gocache.Cache
}

func NewMemoryTenantCache(ttl time.Duration) *MemoryTenantCache {
	return &MemoryTenantCache{items: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryTenantCache) Get(_ context.Context, identityID string) (string, error) {
	v, ok := c.items.Get(identityID)
	if !ok {
		return "", nil
	}
	tenantID, _ := v.(string)
	return tenantID, nil
}

func (c *MemoryTenantCache) Set(_ context.Context, identityID, tenantID string) error {
	if tenantID == "" {
		return nil
	}
	c.items.SetDefault(identityID, tenantID)
	return nil
}

func (c *MemoryTenantCache) Delete(_ context.Context, identityID string) error {
	c.items.Delete(identityID)
	return nil
}
