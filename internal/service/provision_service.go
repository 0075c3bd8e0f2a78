package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/metrics"
	"github.com/soffront/metabase-provisioner/internal/model"
	"github.com/soffront/metabase-provisioner/internal/store"
)

// ProvisionService is the idempotent resolution entry point composing group,
// collection and dashboard provisioning. Exactly-once per (tenant, module) is
// enforced by the store's atomic insert-if-absent, not by the check that
// precedes provisioning: two concurrent resolutions may both provision a
// remote copy, but only the first store write is kept.
type ProvisionService struct {
	mappings      store.MappingStore
	dashboards    *DashboardService
	metabase      MetabaseAPI
	cache         store.MappingCache
	cacheTTL      time.Duration
	metrics       *metrics.Metrics
	cascadeDelete bool
	logger        *zap.Logger
}

// NewProvisionService creates a new provision service
func NewProvisionService(
	mappings store.MappingStore,
	dashboards *DashboardService,
	metabase MetabaseAPI,
	cache store.MappingCache,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	cascadeDelete bool,
	logger *zap.Logger,
) *ProvisionService {
	return &ProvisionService{
		mappings:      mappings,
		dashboards:    dashboards,
		metabase:      metabase,
		cache:         cache,
		cacheTTL:      cacheTTL,
		metrics:       m,
		cascadeDelete: cascadeDelete,
		logger:        logger,
	}
}

// Resolve returns the tenant's dashboard id for the module, provisioning it
// on first request. An already-resolved module returns without any remote
// call.
func (s *ProvisionService) Resolve(ctx context.Context, tenantID int64, module string) (int64, error) {
	if tenantID <= 0 {
		return 0, ErrInvalidTenant
	}

	start := time.Now()

	// Cache fast path
	if cached, err := s.cache.Get(ctx, tenantID); err == nil {
		if id, ok := cached.DashboardID(module); ok {
			s.metrics.RecordCacheHit("mapping")
			s.metrics.RecordResolve(module, "cached", time.Since(start).Seconds())
			return id, nil
		}
	}
	s.metrics.RecordCacheMiss("mapping")

	mapping, err := s.mappings.GetMapping(ctx, tenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("failed to load mapping for tenant %d: %w", tenantID, err)
	}
	if id, ok := mapping.DashboardID(module); ok {
		s.cacheMapping(ctx, tenantID, mapping)
		s.metrics.RecordResolve(module, "existing", time.Since(start).Seconds())
		return id, nil
	}

	dashboardID, err := s.dashboards.Provision(ctx, tenantID, module)
	if err != nil {
		s.metrics.RecordResolveError(module, errorType(err))
		return 0, err
	}

	stored, inserted, err := s.mappings.SetDashboard(ctx, tenantID, module, dashboardID)
	if err != nil {
		return 0, fmt.Errorf("failed to persist dashboard for tenant %d: %w", tenantID, err)
	}

	if !inserted {
		// A concurrent resolution won the store; our remote copy has no local
		// reference and is left behind as accepted garbage.
		s.metrics.RecordOrphanedCopy()
		s.logger.Warn("Lost provisioning race, orphaning dashboard copy",
			zap.Int64("tenant_id", tenantID),
			zap.String("module", module),
			zap.Int64("orphaned_dashboard_id", dashboardID),
			zap.Int64("stored_dashboard_id", stored))
	}

	// Drop any stale cached mapping; the next resolve re-reads the store.
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("Failed to invalidate mapping cache",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err))
	}

	s.metrics.RecordResolve(module, "provisioned", time.Since(start).Seconds())

	return stored, nil
}

// List returns all tenant mappings
func (s *ProvisionService) List(ctx context.Context) ([]*model.TenantMapping, error) {
	return s.mappings.ListMappings(ctx)
}

// Count returns the number of tenant mappings
func (s *ProvisionService) Count(ctx context.Context) (int64, error) {
	return s.mappings.CountMappings(ctx)
}

// Delete removes the tenant's local mapping. Remote resources are only
// touched when the cascade-delete policy is enabled, and then best-effort: a
// failed remote cleanup is logged but the local deletion stands.
func (s *ProvisionService) Delete(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	if tenantID <= 0 {
		return nil, ErrInvalidTenant
	}

	mapping, err := s.mappings.DeleteMapping(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("Failed to invalidate mapping cache",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err))
	}

	s.logger.Info("Deleted tenant mapping",
		zap.Int64("tenant_id", tenantID),
		zap.Bool("cascade", s.cascadeDelete))

	if s.cascadeDelete {
		s.cleanupRemote(ctx, mapping)
	}

	return mapping, nil
}

// cleanupRemote archives the tenant's collection and deletes its group
func (s *ProvisionService) cleanupRemote(ctx context.Context, mapping *model.TenantMapping) {
	if mapping.CollectionID != nil {
		if err := s.metabase.ArchiveCollection(ctx, *mapping.CollectionID); err != nil {
			s.logger.Warn("Failed to archive tenant collection",
				zap.Int64("tenant_id", mapping.TenantID),
				zap.Int64("collection_id", *mapping.CollectionID),
				zap.Error(err))
		}
	}
	if mapping.GroupID != nil {
		if err := s.metabase.DeleteGroup(ctx, *mapping.GroupID); err != nil {
			s.logger.Warn("Failed to delete tenant group",
				zap.Int64("tenant_id", mapping.TenantID),
				zap.Int64("group_id", *mapping.GroupID),
				zap.Error(err))
		}
	}
}

// cacheMapping stores a mapping in the cache, logging failures
func (s *ProvisionService) cacheMapping(ctx context.Context, tenantID int64, mapping *model.TenantMapping) {
	if err := s.cache.Set(ctx, tenantID, mapping, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache mapping",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err))
	}
}

// errorType classifies an error for metrics labels
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTenant), errors.Is(err, ErrUnknownModule):
		return "input"
	default:
		return "remote"
	}
}
