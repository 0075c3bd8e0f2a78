package store

import (
	"context"
	"errors"
	"time"

	"github.com/soffront/metabase-provisioner/internal/model"
)

// ErrNotFound is returned when a mapping is not found
var ErrNotFound = errors.New("not found")

// MappingStore interface for tenant mapping operations
type MappingStore interface {
	// GetMapping retrieves a tenant's mapping, ErrNotFound on miss.
	GetMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error)

	// UpsertProvision records the tenant's group and collection ids. It
	// creates the mapping when absent; on an existing mapping the ids are
	// only written where they are still unset.
	UpsertProvision(ctx context.Context, tenantID, groupID, collectionID int64) error

	// SetDashboard records a module's dashboard id with insert-if-absent
	// semantics at (tenant, module) granularity. It returns the id that ended
	// up stored and whether this call was the one that stored it; a false
	// result means a concurrent writer won and dashboardID is now orphaned.
	SetDashboard(ctx context.Context, tenantID int64, module string, dashboardID int64) (int64, bool, error)

	// DeleteMapping removes and returns a tenant's mapping, ErrNotFound when
	// there is nothing to delete.
	DeleteMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error)

	// ListMappings returns all tenant mappings
	ListMappings(ctx context.Context) ([]*model.TenantMapping, error)

	// CountMappings returns the number of tenant mappings
	CountMappings(ctx context.Context) (int64, error)

	// Health check
	Ping(ctx context.Context) error
	Close()
}

// Locker serializes read-modify-write cycles against shared remote documents
// (the Metabase permission graphs). Acquire blocks until the named lock is
// held or the context is done; the returned function releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
	Ping(ctx context.Context) error
	Close() error
}

// MappingCache is a short-lived read cache in front of the mapping store so
// hot tenants resolve without a store round-trip.
type MappingCache interface {
	// Get returns the cached mapping for a tenant, ErrNotFound on a miss or
	// an expired entry.
	Get(ctx context.Context, tenantID int64) (*model.TenantMapping, error)

	// Set caches a tenant's mapping for ttl. A non-positive ttl caches
	// nothing.
	Set(ctx context.Context, tenantID int64, mapping *model.TenantMapping, ttl time.Duration) error

	// Invalidate drops a tenant's cached mapping.
	Invalidate(ctx context.Context, tenantID int64) error
}
