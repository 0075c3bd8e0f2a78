package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Metabase, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewMetabase(server.URL, "test-api-key", 5*time.Second, nil, zap.NewNop()), server
}

func TestMetabase_SendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewEncoder(w).Encode([]PermissionGroup{})
	})

	_, err := c.ListGroups(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "test-api-key", gotKey)
}

func TestMetabase_CreateGroup(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/permissions/group", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Tenant_7", body["name"])

		json.NewEncoder(w).Encode(PermissionGroup{ID: 42, Name: "Tenant_7"})
	})

	group, err := c.CreateGroup(context.Background(), "Tenant_7")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), group.ID)
}

func TestMetabase_CopyDashboard(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/dashboard/10/copy", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Management - Tenant 7", body["name"])
		assert.Equal(t, float64(77), body["collection_id"])
		assert.Equal(t, true, body["is_deep_copy"])

		json.NewEncoder(w).Encode(Dashboard{ID: 900, CollectionID: 77})
	})

	dashboard, err := c.CopyDashboard(context.Background(), CopyDashboardRequest{
		TemplateID:   10,
		Name:         "Management - Tenant 7",
		CollectionID: 77,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(900), dashboard.ID)
}

func TestMetabase_ArchiveCollection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/collection/77", r.URL.Path)

		var body map[string]bool
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["archived"])

		json.NewEncoder(w).Encode(Collection{ID: 77, Archived: true})
	})

	err := c.ArchiveCollection(context.Background(), 77)

	assert.NoError(t, err)
}

func TestMetabase_NonSuccessStatusReturnsAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API key is invalid"}`))
	})

	_, err := c.ListGroups(context.Background())

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "API key is invalid")
}

func TestMetabase_PutPermissionsGraphRoundTripsRevision(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/permissions/graph", r.URL.Path)

		var graph PermissionsGraph
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&graph))
		assert.Equal(t, int64(9), graph.Revision)

		json.NewEncoder(w).Encode(graph)
	})

	err := c.PutPermissionsGraph(context.Background(), &PermissionsGraph{
		Revision: 9,
		Groups:   map[string]map[string]any{"42": {"1": "all"}},
	})

	assert.NoError(t, err)
}

func TestMetabase_ContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListGroups(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
