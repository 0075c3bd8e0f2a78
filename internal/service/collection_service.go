package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/metrics"
	"github.com/soffront/metabase-provisioner/internal/store"
)

// collectionGraphLock serializes collection-permission graph mutations
const collectionGraphLock = "metabase:graph:collection"

// Collection access levels in the Metabase collection graph
const (
	accessWrite = "write"
	accessNone  = "none"
)

// CollectionService ensures a tenant's dashboard collection exists under the
// root collection, restricted to the tenant's group.
type CollectionService struct {
	metabase         MetabaseAPI
	mappings         store.MappingStore
	groups           *GroupService
	locker           store.Locker
	metrics          *metrics.Metrics
	rootCollectionID int64
	allUsersGroupID  int64
	collectionColor  string
	logger           *zap.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	metabase MetabaseAPI,
	mappings store.MappingStore,
	groups *GroupService,
	locker store.Locker,
	m *metrics.Metrics,
	rootCollectionID, allUsersGroupID int64,
	collectionColor string,
	logger *zap.Logger,
) *CollectionService {
	return &CollectionService{
		metabase:         metabase,
		mappings:         mappings,
		groups:           groups,
		locker:           locker,
		metrics:          m,
		rootCollectionID: rootCollectionID,
		allUsersGroupID:  allUsersGroupID,
		collectionColor:  collectionColor,
		logger:           logger,
	}
}

// EnsureCollection resolves the tenant's collection and group ids. A mapping
// with both ids already set short-circuits without any remote call; once
// resolved, a collection is reused for the tenant's lifetime. On a miss the
// group is resolved first, the collection created under the root, access
// granted to the tenant group and revoked from All Users, and the ids
// persisted before returning.
func (s *CollectionService) EnsureCollection(ctx context.Context, tenantID int64) (int64, int64, error) {
	mapping, err := s.mappings.GetMapping(ctx, tenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, 0, fmt.Errorf("failed to load mapping for tenant %d: %w", tenantID, err)
	}
	if mapping.Provisioned() {
		return *mapping.CollectionID, *mapping.GroupID, nil
	}

	groupID, err := s.groups.EnsureGroup(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}

	collection, err := s.metabase.CreateCollection(ctx, client.CreateCollectionRequest{
		Name:        fmt.Sprintf("Tenant %d", tenantID),
		Description: fmt.Sprintf("Dashboards for tenant %d", tenantID),
		ParentID:    s.rootCollectionID,
		Color:       s.collectionColor,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create collection for tenant %d: %w", tenantID, err)
	}
	s.metrics.RecordCollectionCreated()

	if err := s.grantAccess(ctx, groupID, collection.ID); err != nil {
		return 0, 0, fmt.Errorf("failed to grant collection access for tenant %d: %w", tenantID, err)
	}

	if err := s.mappings.UpsertProvision(ctx, tenantID, groupID, collection.ID); err != nil {
		return 0, 0, fmt.Errorf("failed to persist provision for tenant %d: %w", tenantID, err)
	}

	// The upsert keeps the earliest writer's ids, so re-read to learn which
	// collection is canonical; a lost race leaves ours behind unreferenced.
	stored, err := s.mappings.GetMapping(ctx, tenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reload mapping for tenant %d: %w", tenantID, err)
	}
	if !stored.Provisioned() {
		return 0, 0, fmt.Errorf("mapping for tenant %d missing provisioned ids after upsert", tenantID)
	}
	if *stored.CollectionID != collection.ID {
		s.logger.Warn("Lost collection provisioning race",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("orphaned_collection_id", collection.ID),
			zap.Int64("collection_id", *stored.CollectionID))
	}

	s.logger.Info("Provisioned tenant collection",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("collection_id", *stored.CollectionID),
		zap.Int64("group_id", *stored.GroupID))

	return *stored.CollectionID, *stored.GroupID, nil
}

// grantAccess gives the tenant group curate access to the collection and
// revokes the default All Users access, with a read-modify-write of the
// collection graph held under the collection graph lock.
func (s *CollectionService) grantAccess(ctx context.Context, groupID, collectionID int64) error {
	release, err := s.locker.Acquire(ctx, collectionGraphLock)
	if err != nil {
		return fmt.Errorf("failed to acquire collection graph lock: %w", err)
	}
	defer release()

	graph, err := s.metabase.GetCollectionGraph(ctx)
	if err != nil {
		return err
	}

	groupKey := strconv.FormatInt(groupID, 10)
	allUsersKey := strconv.FormatInt(s.allUsersGroupID, 10)
	collectionKey := strconv.FormatInt(collectionID, 10)

	if graph.Groups == nil {
		graph.Groups = make(map[string]map[string]string)
	}
	if graph.Groups[groupKey] == nil {
		graph.Groups[groupKey] = make(map[string]string)
	}
	if graph.Groups[allUsersKey] == nil {
		graph.Groups[allUsersKey] = make(map[string]string)
	}

	graph.Groups[groupKey][collectionKey] = accessWrite
	graph.Groups[allUsersKey][collectionKey] = accessNone

	return s.metabase.PutCollectionGraph(ctx, graph)
}
