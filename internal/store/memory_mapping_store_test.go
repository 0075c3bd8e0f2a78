package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryMappingStore_GetMapping_NotFound(t *testing.T) {
	s := NewMemoryMappingStore()

	_, err := s.GetMapping(context.Background(), 7)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMappingStore_UpsertProvision_SetOnInsert(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	assert.NoError(t, s.UpsertProvision(ctx, 7, 42, 77))

	// A later upsert cannot overwrite ids that are already set
	assert.NoError(t, s.UpsertProvision(ctx, 7, 43, 78))

	mapping, err := s.GetMapping(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), *mapping.GroupID)
	assert.Equal(t, int64(77), *mapping.CollectionID)
}

func TestMemoryMappingStore_SetDashboard_InsertIfAbsent(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	stored, inserted, err := s.SetDashboard(ctx, 7, "Management", 900)
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(900), stored)

	// The losing write gets the winner's id back
	stored, inserted, err = s.SetDashboard(ctx, 7, "Management", 901)
	assert.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, int64(900), stored)

	// A different module is an independent slot
	stored, inserted, err = s.SetDashboard(ctx, 7, "Sales", 902)
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(902), stored)
}

func TestMemoryMappingStore_SetDashboard_CreatesMapping(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	_, inserted, err := s.SetDashboard(ctx, 7, "Management", 900)
	assert.NoError(t, err)
	assert.True(t, inserted)

	mapping, err := s.GetMapping(ctx, 7)
	assert.NoError(t, err)
	assert.Nil(t, mapping.GroupID)
	assert.Nil(t, mapping.CollectionID)
	id, ok := mapping.DashboardID("Management")
	assert.True(t, ok)
	assert.Equal(t, int64(900), id)
}

func TestMemoryMappingStore_DeleteMapping(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	assert.NoError(t, s.UpsertProvision(ctx, 7, 42, 77))

	mapping, err := s.DeleteMapping(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), mapping.TenantID)

	_, err = s.GetMapping(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteMapping(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMappingStore_GetMapping_ReturnsCopy(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	_, _, err := s.SetDashboard(ctx, 7, "Management", 900)
	assert.NoError(t, err)

	mapping, err := s.GetMapping(ctx, 7)
	assert.NoError(t, err)
	mapping.Dashboards["Management"] = 999

	fresh, err := s.GetMapping(ctx, 7)
	assert.NoError(t, err)
	id, _ := fresh.DashboardID("Management")
	assert.Equal(t, int64(900), id)
}

func TestMemoryMappingStore_ListAndCount(t *testing.T) {
	s := NewMemoryMappingStore()
	ctx := context.Background()

	assert.NoError(t, s.UpsertProvision(ctx, 7, 42, 77))
	assert.NoError(t, s.UpsertProvision(ctx, 8, 43, 78))

	mappings, err := s.ListMappings(ctx)
	assert.NoError(t, err)
	assert.Len(t, mappings, 2)

	count, err := s.CountMappings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
