package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantMapping_DashboardID(t *testing.T) {
	var mapping *TenantMapping
	_, ok := mapping.DashboardID("Management")
	assert.False(t, ok)

	mapping = &TenantMapping{TenantID: 7}
	_, ok = mapping.DashboardID("Management")
	assert.False(t, ok)

	mapping.Dashboards = map[string]int64{"Management": 900}
	id, ok := mapping.DashboardID("Management")
	assert.True(t, ok)
	assert.Equal(t, int64(900), id)

	_, ok = mapping.DashboardID("Sales")
	assert.False(t, ok)
}

func TestTenantMapping_Provisioned(t *testing.T) {
	var mapping *TenantMapping
	assert.False(t, mapping.Provisioned())

	groupID, collectionID := int64(42), int64(77)

	mapping = &TenantMapping{TenantID: 7, GroupID: &groupID}
	assert.False(t, mapping.Provisioned())

	mapping.CollectionID = &collectionID
	assert.True(t, mapping.Provisioned())
}
