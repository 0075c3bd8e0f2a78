package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/soffront/metabase-provisioner/internal/client"
)

// MockMetabase is a mock implementation of MetabaseAPI
type MockMetabase struct {
	mock.Mock
}

func (m *MockMetabase) ListGroups(ctx context.Context) ([]client.PermissionGroup, error) {
	args := m.Called(ctx)
	return args.Get(0).([]client.PermissionGroup), args.Error(1)
}

func (m *MockMetabase) CreateGroup(ctx context.Context, name string) (*client.PermissionGroup, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(*client.PermissionGroup), args.Error(1)
}

func (m *MockMetabase) DeleteGroup(ctx context.Context, groupID int64) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *MockMetabase) GetPermissionsGraph(ctx context.Context) (*client.PermissionsGraph, error) {
	args := m.Called(ctx)
	return args.Get(0).(*client.PermissionsGraph), args.Error(1)
}

func (m *MockMetabase) PutPermissionsGraph(ctx context.Context, graph *client.PermissionsGraph) error {
	args := m.Called(ctx, graph)
	return args.Error(0)
}

func (m *MockMetabase) ListSandboxes(ctx context.Context) ([]client.Sandbox, error) {
	args := m.Called(ctx)
	return args.Get(0).([]client.Sandbox), args.Error(1)
}

func (m *MockMetabase) CreateSandbox(ctx context.Context, sandbox client.Sandbox) (*client.Sandbox, error) {
	args := m.Called(ctx, sandbox)
	return args.Get(0).(*client.Sandbox), args.Error(1)
}

func (m *MockMetabase) DeleteSandbox(ctx context.Context, sandboxID int64) error {
	args := m.Called(ctx, sandboxID)
	return args.Error(0)
}

func (m *MockMetabase) GetCollectionGraph(ctx context.Context) (*client.CollectionGraph, error) {
	args := m.Called(ctx)
	return args.Get(0).(*client.CollectionGraph), args.Error(1)
}

func (m *MockMetabase) PutCollectionGraph(ctx context.Context, graph *client.CollectionGraph) error {
	args := m.Called(ctx, graph)
	return args.Error(0)
}

func (m *MockMetabase) CreateCollection(ctx context.Context, req client.CreateCollectionRequest) (*client.Collection, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*client.Collection), args.Error(1)
}

func (m *MockMetabase) ArchiveCollection(ctx context.Context, collectionID int64) error {
	args := m.Called(ctx, collectionID)
	return args.Error(0)
}

func (m *MockMetabase) CopyDashboard(ctx context.Context, req client.CopyDashboardRequest) (*client.Dashboard, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*client.Dashboard), args.Error(1)
}

func (m *MockMetabase) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
