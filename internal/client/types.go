package client

import "encoding/json"

// PermissionGroup represents a Metabase permission group
type PermissionGroup struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count,omitempty"`
}

// PermissionsGraph is the global data-permission document. Groups maps a
// group id (as a string, Metabase's wire format) to that group's permission
// subtree, itself a nested JSON object keyed by database/schema/table.
type PermissionsGraph struct {
	Revision int64                     `json:"revision"`
	Groups   map[string]map[string]any `json:"groups"`
}

// CollectionGraph is the global collection-permission document. The inner map
// goes from collection id to an access level ("read", "write" or "none").
type CollectionGraph struct {
	Revision int64                        `json:"revision"`
	Groups   map[string]map[string]string `json:"groups"`
}

// Sandbox is a row-level-security (GTAP) rule restricting which rows a group
// may see in one table, optionally through a parameterized card.
type Sandbox struct {
	ID                  int64           `json:"id,omitempty"`
	GroupID             int64           `json:"group_id"`
	TableID             int64           `json:"table_id"`
	CardID              *int64          `json:"card_id"`
	AttributeRemappings json.RawMessage `json:"attribute_remappings,omitempty"`
}

// Collection represents a Metabase collection (dashboard folder)
type Collection struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Color       string `json:"color,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
}

// CreateCollectionRequest contains parameters for creating a collection
type CreateCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    int64  `json:"parent_id"`
	Color       string `json:"color,omitempty"`
}

// Dashboard represents a Metabase dashboard
type Dashboard struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CollectionID int64  `json:"collection_id,omitempty"`
}

// CopyDashboardRequest contains parameters for deep-copying a template
// dashboard into a collection.
type CopyDashboardRequest struct {
	TemplateID   int64
	Name         string
	Description  string
	CollectionID int64
}
