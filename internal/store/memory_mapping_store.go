package store

import (
	"context"
	"sync"
	"time"

	"github.com/soffront/metabase-provisioner/internal/model"
)

// MemoryMappingStore implements MappingStore with an in-memory map. It keeps
// the same write semantics as the PostgreSQL store and backs tests and local
// development.
type MemoryMappingStore struct {
	mu       sync.Mutex
	mappings map[int64]*model.TenantMapping
}

// NewMemoryMappingStore creates a new in-memory mapping store
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{
		mappings: make(map[int64]*model.TenantMapping),
	}
}

// GetMapping retrieves a tenant's mapping
func (s *MemoryMappingStore) GetMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, ok := s.mappings[tenantID]
	if !ok {
		return nil, ErrNotFound
	}

	return copyMapping(mapping), nil
}

// UpsertProvision records the tenant's group and collection ids, filling them
// only where still unset.
func (s *MemoryMappingStore) UpsertProvision(ctx context.Context, tenantID, groupID, collectionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping := s.ensure(tenantID)
	if mapping.GroupID == nil {
		mapping.GroupID = &groupID
	}
	if mapping.CollectionID == nil {
		mapping.CollectionID = &collectionID
	}
	mapping.UpdatedAt = time.Now()

	return nil
}

// SetDashboard records a module's dashboard id with insert-if-absent semantics
func (s *MemoryMappingStore) SetDashboard(ctx context.Context, tenantID int64, module string, dashboardID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping := s.ensure(tenantID)
	if existing, ok := mapping.Dashboards[module]; ok {
		return existing, false, nil
	}

	mapping.Dashboards[module] = dashboardID
	mapping.UpdatedAt = time.Now()

	return dashboardID, true, nil
}

// DeleteMapping removes and returns a tenant's mapping
func (s *MemoryMappingStore) DeleteMapping(ctx context.Context, tenantID int64) (*model.TenantMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, ok := s.mappings[tenantID]
	if !ok {
		return nil, ErrNotFound
	}

	delete(s.mappings, tenantID)

	return copyMapping(mapping), nil
}

// ListMappings returns all tenant mappings
func (s *MemoryMappingStore) ListMappings(ctx context.Context) ([]*model.TenantMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings := make([]*model.TenantMapping, 0, len(s.mappings))
	for _, mapping := range s.mappings {
		mappings = append(mappings, copyMapping(mapping))
	}

	return mappings, nil
}

// CountMappings returns the number of tenant mappings
func (s *MemoryMappingStore) CountMappings(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.mappings)), nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryMappingStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryMappingStore) Close() {}

// ensure returns the tenant's mapping, creating it when absent. Callers must
// hold the mutex.
func (s *MemoryMappingStore) ensure(tenantID int64) *model.TenantMapping {
	mapping, ok := s.mappings[tenantID]
	if !ok {
		now := time.Now()
		mapping = &model.TenantMapping{
			TenantID:   tenantID,
			Dashboards: make(map[string]int64),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.mappings[tenantID] = mapping
	}
	return mapping
}

// copyMapping returns a deep copy so callers cannot mutate stored state
func copyMapping(m *model.TenantMapping) *model.TenantMapping {
	cp := *m
	cp.Dashboards = make(map[string]int64, len(m.Dashboards))
	for module, id := range m.Dashboards {
		cp.Dashboards[module] = id
	}
	if m.GroupID != nil {
		groupID := *m.GroupID
		cp.GroupID = &groupID
	}
	if m.CollectionID != nil {
		collectionID := *m.CollectionID
		cp.CollectionID = &collectionID
	}
	return &cp
}
