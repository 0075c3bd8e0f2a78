package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/metrics"
)

// DashboardService deep-copies module template dashboards into tenant
// collections.
type DashboardService struct {
	metabase    MetabaseAPI
	collections *CollectionService
	modules     map[string]int64
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	metabase MetabaseAPI,
	collections *CollectionService,
	modules map[string]int64,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		metabase:    metabase,
		collections: collections,
		modules:     modules,
		metrics:     m,
		logger:      logger,
	}
}

// Provision deep-copies the module's template dashboard into the tenant's
// collection, resolving the collection and group first. It does not persist
// the result; that is the orchestrator's responsibility.
func (s *DashboardService) Provision(ctx context.Context, tenantID int64, module string) (int64, error) {
	templateID, ok := s.modules[module]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}

	collectionID, _, err := s.collections.EnsureCollection(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	dashboard, err := s.metabase.CopyDashboard(ctx, client.CopyDashboardRequest{
		TemplateID:   templateID,
		Name:         fmt.Sprintf("%s - Tenant %d", module, tenantID),
		Description:  fmt.Sprintf("%s dashboard for tenant %d", module, tenantID),
		CollectionID: collectionID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy %s dashboard for tenant %d: %w", module, tenantID, err)
	}
	s.metrics.RecordDashboardCopied()

	s.logger.Info("Provisioned dashboard",
		zap.Int64("tenant_id", tenantID),
		zap.String("module", module),
		zap.Int64("dashboard_id", dashboard.ID))

	return dashboard.ID, nil
}
