package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/store"
)

func newCollectionService(mockMetabase *MockMetabase, mappings store.MappingStore) *CollectionService {
	logger := zap.NewNop()
	locker := store.NewLocalLocker()
	groups := NewGroupService(mockMetabase, locker, nil, 5, false, logger)
	return NewCollectionService(mockMetabase, mappings, groups, locker, nil, 2, 1, "#509EE3", logger)
}

func TestCollectionService_EnsureCollection_ShortCircuitsOnProvisionedMapping(t *testing.T) {
	mockMetabase := new(MockMetabase)
	mappings := store.NewMemoryMappingStore()

	ctx := context.Background()

	err := mappings.UpsertProvision(ctx, 7, 42, 77)
	assert.NoError(t, err)

	service := newCollectionService(mockMetabase, mappings)

	collectionID, groupID, err := service.EnsureCollection(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(77), collectionID)
	assert.Equal(t, int64(42), groupID)
	mockMetabase.AssertNotCalled(t, "ListGroups", mock.Anything)
	mockMetabase.AssertNotCalled(t, "CreateCollection", mock.Anything, mock.Anything)
}

func TestCollectionService_EnsureCollection_ProvisionsAndPersists(t *testing.T) {
	mockMetabase := new(MockMetabase)
	mappings := store.NewMemoryMappingStore()

	service := newCollectionService(mockMetabase, mappings)

	ctx := context.Background()

	mockMetabase.On("ListGroups", ctx).Return([]client.PermissionGroup{}, nil).Once()
	mockMetabase.On("CreateGroup", ctx, "Tenant_7").Return(&client.PermissionGroup{ID: 42}, nil).Once()
	mockMetabase.On("GetPermissionsGraph", ctx).Return(&client.PermissionsGraph{
		Groups: map[string]map[string]any{"5": {"1": "all"}},
	}, nil).Once()
	mockMetabase.On("PutPermissionsGraph", ctx, mock.Anything).Return(nil).Once()
	mockMetabase.On("ListSandboxes", ctx).Return([]client.Sandbox{}, nil).Once()
	mockMetabase.On("CreateCollection", ctx, mock.MatchedBy(func(req client.CreateCollectionRequest) bool {
		return req.Name == "Tenant 7" && req.ParentID == int64(2)
	})).Return(&client.Collection{ID: 77, Name: "Tenant 7"}, nil).Once()
	mockMetabase.On("GetCollectionGraph", ctx).Return(&client.CollectionGraph{
		Groups: map[string]map[string]string{},
	}, nil).Once()
	mockMetabase.On("PutCollectionGraph", ctx, mock.MatchedBy(func(graph *client.CollectionGraph) bool {
		return graph.Groups["42"]["77"] == "write" && graph.Groups["1"]["77"] == "none"
	})).Return(nil).Once()

	collectionID, groupID, err := service.EnsureCollection(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(77), collectionID)
	assert.Equal(t, int64(42), groupID)

	// The ids are persisted, so a second resolution is local
	collectionID, groupID, err = service.EnsureCollection(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, int64(77), collectionID)
	assert.Equal(t, int64(42), groupID)
	mockMetabase.AssertExpectations(t)
}

// racedMappingStore lands another provisioner's ids immediately before each
// upsert, so the caller's write always loses the set-on-insert.
type racedMappingStore struct {
	store.MappingStore
	racerGroupID      int64
	racerCollectionID int64
}

func (s *racedMappingStore) UpsertProvision(ctx context.Context, tenantID, groupID, collectionID int64) error {
	if err := s.MappingStore.UpsertProvision(ctx, tenantID, s.racerGroupID, s.racerCollectionID); err != nil {
		return err
	}
	return s.MappingStore.UpsertProvision(ctx, tenantID, groupID, collectionID)
}

func TestCollectionService_EnsureCollection_LostRaceReturnsStoredIDs(t *testing.T) {
	mockMetabase := new(MockMetabase)
	mappings := &racedMappingStore{
		MappingStore:      store.NewMemoryMappingStore(),
		racerGroupID:      43,
		racerCollectionID: 78,
	}

	service := newCollectionService(mockMetabase, mappings)

	ctx := context.Background()

	mockMetabase.On("ListGroups", ctx).Return([]client.PermissionGroup{
		{ID: 42, Name: "Tenant_7"},
	}, nil)
	mockMetabase.On("CreateCollection", ctx, mock.Anything).Return(&client.Collection{ID: 77}, nil)
	mockMetabase.On("GetCollectionGraph", ctx).Return(&client.CollectionGraph{
		Groups: map[string]map[string]string{},
	}, nil)
	mockMetabase.On("PutCollectionGraph", ctx, mock.Anything).Return(nil)

	collectionID, groupID, err := service.EnsureCollection(ctx, 7)

	// The earlier writer's ids are canonical; collection 77 stays behind
	// unreferenced
	assert.NoError(t, err)
	assert.Equal(t, int64(78), collectionID)
	assert.Equal(t, int64(43), groupID)

	mapping, err := mappings.GetMapping(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(78), *mapping.CollectionID)
	assert.Equal(t, int64(43), *mapping.GroupID)
}

func TestCollectionService_EnsureCollection_CollectionFailureNotPersisted(t *testing.T) {
	mockMetabase := new(MockMetabase)
	mappings := store.NewMemoryMappingStore()

	service := newCollectionService(mockMetabase, mappings)

	ctx := context.Background()

	mockMetabase.On("ListGroups", ctx).Return([]client.PermissionGroup{
		{ID: 42, Name: "Tenant_7"},
	}, nil)
	mockMetabase.On("CreateCollection", ctx, mock.Anything).Return((*client.Collection)(nil), assert.AnError)

	_, _, err := service.EnsureCollection(ctx, 7)

	assert.Error(t, err)
	_, err = mappings.GetMapping(ctx, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
