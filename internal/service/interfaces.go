package service

import (
	"context"
	"errors"

	"github.com/soffront/metabase-provisioner/internal/client"
)

// Input errors fail fast before any remote call is made.
var (
	// ErrInvalidTenant is returned for a missing or non-positive tenant id
	ErrInvalidTenant = errors.New("invalid project id")

	// ErrUnknownModule is returned for a module with no configured template
	ErrUnknownModule = errors.New("invalid module")
)

// MetabaseAPI is the subset of the Metabase client the provisioning services
// depend on.
type MetabaseAPI interface {
	ListGroups(ctx context.Context) ([]client.PermissionGroup, error)
	CreateGroup(ctx context.Context, name string) (*client.PermissionGroup, error)
	DeleteGroup(ctx context.Context, groupID int64) error

	GetPermissionsGraph(ctx context.Context) (*client.PermissionsGraph, error)
	PutPermissionsGraph(ctx context.Context, graph *client.PermissionsGraph) error

	ListSandboxes(ctx context.Context) ([]client.Sandbox, error)
	CreateSandbox(ctx context.Context, sandbox client.Sandbox) (*client.Sandbox, error)
	DeleteSandbox(ctx context.Context, sandboxID int64) error

	GetCollectionGraph(ctx context.Context) (*client.CollectionGraph, error)
	PutCollectionGraph(ctx context.Context, graph *client.CollectionGraph) error
	CreateCollection(ctx context.Context, req client.CreateCollectionRequest) (*client.Collection, error)
	ArchiveCollection(ctx context.Context, collectionID int64) error

	CopyDashboard(ctx context.Context, req client.CopyDashboardRequest) (*client.Dashboard, error)

	Ping(ctx context.Context) error
}
