package model

import "time"

// TenantMapping records the Metabase resources provisioned for a single
// tenant. GroupID and CollectionID stay nil until the first successful
// group+collection resolution; once set, CollectionID is never changed.
// Dashboards maps a module name to the dashboard copied for it and grows by
// one entry per distinct module ever resolved for the tenant.
type TenantMapping struct {
	TenantID     int64            `json:"tenant_id"`
	GroupID      *int64           `json:"group_id"`
	CollectionID *int64           `json:"collection_id"`
	Dashboards   map[string]int64 `json:"dashboards"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// DashboardID returns the dashboard provisioned for the given module, if any.
func (m *TenantMapping) DashboardID(module string) (int64, bool) {
	if m == nil || m.Dashboards == nil {
		return 0, false
	}
	id, ok := m.Dashboards[module]
	return id, ok
}

// Provisioned reports whether the tenant's group and collection both exist.
func (m *TenantMapping) Provisioned() bool {
	return m != nil && m.GroupID != nil && m.CollectionID != nil
}
