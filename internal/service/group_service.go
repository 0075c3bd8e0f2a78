package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/metrics"
	"github.com/soffront/metabase-provisioner/internal/store"
)

// permissionsGraphLock serializes data-permission graph mutations; the graph
// is a single shared document and Metabase offers no conditional write.
const permissionsGraphLock = "metabase:graph:permissions"

// CloneOutcome describes how a clone sub-step ended
type CloneOutcome string

const (
	CloneApplied CloneOutcome = "applied"
	CloneSkipped CloneOutcome = "skipped"
	CloneFailed  CloneOutcome = "failed"
)

// CloneReport records the per-sub-step outcome of cloning template
// permissions onto a tenant group. Sandbox failures never fail the enclosing
// operation, so this is the only place they stay visible.
type CloneReport struct {
	Graph        CloneOutcome
	Sandboxes    CloneOutcome
	SandboxCount int
}

// GroupService ensures a tenant's permission group exists and carries the
// template group's permissions.
type GroupService struct {
	metabase        MetabaseAPI
	locker          store.Locker
	metrics         *metrics.Metrics
	templateGroupID int64
	reclone         bool
	logger          *zap.Logger
}

// NewGroupService creates a new group service
func NewGroupService(
	metabase MetabaseAPI,
	locker store.Locker,
	m *metrics.Metrics,
	templateGroupID int64,
	reclone bool,
	logger *zap.Logger,
) *GroupService {
	return &GroupService{
		metabase:        metabase,
		locker:          locker,
		metrics:         m,
		templateGroupID: templateGroupID,
		reclone:         reclone,
		logger:          logger,
	}
}

// GroupName derives the deterministic group name for a tenant
func GroupName(tenantID int64) string {
	return fmt.Sprintf("Tenant_%d", tenantID)
}

// EnsureGroup resolves the tenant's permission group, creating it and cloning
// the template permissions onto it when missing. When the reclone policy is
// enabled an existing group is re-cloned on every resolution so drift in
// Metabase heals on the next request.
func (s *GroupService) EnsureGroup(ctx context.Context, tenantID int64) (int64, error) {
	name := GroupName(tenantID)

	groups, err := s.metabase.ListGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to look up group %q: %w", name, err)
	}

	for _, group := range groups {
		if group.Name != name {
			continue
		}

		if s.reclone {
			report, err := s.clonePermissions(ctx, group.ID)
			if err != nil {
				return 0, fmt.Errorf("failed to re-clone permissions onto group %d: %w", group.ID, err)
			}
			s.logClone(tenantID, group.ID, report)
		}

		s.logger.Debug("Resolved existing tenant group",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("group_id", group.ID))

		return group.ID, nil
	}

	created, err := s.metabase.CreateGroup(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create group %q: %w", name, err)
	}
	s.metrics.RecordGroupCreated()

	report, err := s.clonePermissions(ctx, created.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to clone permissions onto group %d: %w", created.ID, err)
	}
	s.logClone(tenantID, created.ID, report)

	s.logger.Info("Created tenant group",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("group_id", created.ID))

	return created.ID, nil
}

// clonePermissions copies the template group's data-permission subtree and
// sandboxing rules onto the target group. The graph clone is mandatory and
// its failure aborts the clone; the sandbox clone is best-effort and only
// recorded in the returned report.
func (s *GroupService) clonePermissions(ctx context.Context, targetGroupID int64) (CloneReport, error) {
	report := CloneReport{}

	outcome, err := s.cloneGraph(ctx, targetGroupID)
	report.Graph = outcome
	s.metrics.RecordCloneOutcome("graph", string(outcome))
	if err != nil {
		return report, err
	}

	count, outcome := s.cloneSandboxes(ctx, targetGroupID)
	report.Sandboxes = outcome
	report.SandboxCount = count
	s.metrics.RecordCloneOutcome("sandboxes", string(outcome))

	return report, nil
}

// cloneGraph deep-copies the template group's permission subtree into the
// target group's slot with a read-modify-write of the full graph, held under
// the graph lock.
func (s *GroupService) cloneGraph(ctx context.Context, targetGroupID int64) (CloneOutcome, error) {
	templateKey := strconv.FormatInt(s.templateGroupID, 10)
	targetKey := strconv.FormatInt(targetGroupID, 10)

	if targetKey == templateKey {
		return CloneSkipped, nil
	}

	release, err := s.locker.Acquire(ctx, permissionsGraphLock)
	if err != nil {
		return CloneFailed, fmt.Errorf("failed to acquire permissions graph lock: %w", err)
	}
	defer release()

	graph, err := s.metabase.GetPermissionsGraph(ctx)
	if err != nil {
		return CloneFailed, err
	}

	template, ok := graph.Groups[templateKey]
	if !ok {
		s.logger.Warn("Template group missing from permissions graph, skipping clone",
			zap.Int64("template_group_id", s.templateGroupID))
		return CloneSkipped, nil
	}

	graph.Groups[targetKey] = copyPermissionTree(template)

	if err := s.metabase.PutPermissionsGraph(ctx, graph); err != nil {
		return CloneFailed, err
	}

	return CloneApplied, nil
}

// cloneSandboxes replaces the target group's row-level-security rules with
// copies of the template group's. Failures are logged and swallowed: sandbox
// rules refine access but are not required for it.
func (s *GroupService) cloneSandboxes(ctx context.Context, targetGroupID int64) (int, CloneOutcome) {
	sandboxes, err := s.metabase.ListSandboxes(ctx)
	if err != nil {
		s.logger.Warn("Failed to list sandboxing rules, skipping sandbox clone",
			zap.Int64("group_id", targetGroupID),
			zap.Error(err))
		return 0, CloneFailed
	}

	var templates []client.Sandbox
	for _, sandbox := range sandboxes {
		switch sandbox.GroupID {
		case s.templateGroupID:
			templates = append(templates, sandbox)
		case targetGroupID:
			// Remove pre-existing rules so a re-clone cannot duplicate them
			if err := s.metabase.DeleteSandbox(ctx, sandbox.ID); err != nil {
				s.logger.Warn("Failed to delete stale sandboxing rule",
					zap.Int64("sandbox_id", sandbox.ID),
					zap.Int64("group_id", targetGroupID),
					zap.Error(err))
			}
		}
	}

	cloned := 0
	failed := false
	for _, template := range templates {
		rule := client.Sandbox{
			GroupID:             targetGroupID,
			TableID:             template.TableID,
			CardID:              template.CardID,
			AttributeRemappings: template.AttributeRemappings,
		}
		if _, err := s.metabase.CreateSandbox(ctx, rule); err != nil {
			failed = true
			s.logger.Warn("Failed to clone sandboxing rule",
				zap.Int64("table_id", template.TableID),
				zap.Int64("group_id", targetGroupID),
				zap.Error(err))
			continue
		}
		cloned++
	}

	switch {
	case failed:
		return cloned, CloneFailed
	case len(templates) == 0:
		return 0, CloneSkipped
	default:
		return cloned, CloneApplied
	}
}

// logClone reports the clone outcome for observability
func (s *GroupService) logClone(tenantID, groupID int64, report CloneReport) {
	s.logger.Info("Cloned template permissions",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("group_id", groupID),
		zap.String("graph", string(report.Graph)),
		zap.String("sandboxes", string(report.Sandboxes)),
		zap.Int("sandbox_count", report.SandboxCount))
}

// copyPermissionTree deep-copies a permission subtree so later mutations of
// the template entry cannot leak into the clone.
func copyPermissionTree(tree map[string]any) map[string]any {
	cp := make(map[string]any, len(tree))
	for key, value := range tree {
		cp[key] = copyPermissionValue(value)
	}
	return cp
}

func copyPermissionValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyPermissionTree(v)
	case []any:
		cp := make([]any, len(v))
		for i, item := range v {
			cp[i] = copyPermissionValue(item)
		}
		return cp
	default:
		return v
	}
}
