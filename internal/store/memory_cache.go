package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/model"
)

// MemoryMappingCache implements MappingCache with an expiry-checked map.
// Stale entries are dropped on read; a full cache sweeps expired entries
// before evicting a live one.
type MemoryMappingCache struct {
	entries map[int64]mappingEntry
	mu      sync.Mutex
	maxSize int
	logger  *zap.Logger
}

type mappingEntry struct {
	mapping   *model.TenantMapping
	expiresAt time.Time
}

// NewMemoryMappingCache creates a new in-memory mapping cache
func NewMemoryMappingCache(maxSize int, logger *zap.Logger) MappingCache {
	return &MemoryMappingCache{
		entries: make(map[int64]mappingEntry),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Get returns the cached mapping for a tenant, expiring stale entries
func (c *MemoryMappingCache) Get(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, tenantID)
		return nil, ErrNotFound
	}

	return entry.mapping, nil
}

// Set caches a tenant's mapping. A non-positive ttl disables caching, so a
// deployment configured with cache_ttl 0 always reads the store.
func (c *MemoryMappingCache) Set(ctx context.Context, tenantID int64, mapping *model.TenantMapping, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[tenantID]; !ok && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[tenantID] = mappingEntry{
		mapping:   mapping,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Invalidate drops a tenant's cached mapping
func (c *MemoryMappingCache) Invalidate(ctx context.Context, tenantID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
	return nil
}

// evictLocked sweeps expired entries, then drops an arbitrary live entry if
// the cache is still full. The caller holds the lock.
func (c *MemoryMappingCache) evictLocked() {
	now := time.Now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}

	if len(c.entries) >= c.maxSize {
		for id := range c.entries {
			delete(c.entries, id)
			c.logger.Debug("Evicted cached mapping", zap.Int64("tenant_id", id))
			break
		}
	}
}
