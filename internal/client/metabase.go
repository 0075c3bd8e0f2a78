// Package client provides typed access to the Metabase REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/metrics"
)

const apiKeyHeader = "X-API-KEY"

// APIError represents a non-2xx response from Metabase. The body snippet is
// preserved so provisioning failures surface the upstream payload.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("metabase returned status %d: %s", e.StatusCode, e.Body)
}

// Metabase is an HTTP client for the Metabase API. All calls carry the static
// API key header and a per-call timeout.
type Metabase struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewMetabase creates a new Metabase client. A nil metrics value disables
// call accounting.
func NewMetabase(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Metabase {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Metabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// ListGroups retrieves all permission groups
func (c *Metabase) ListGroups(ctx context.Context) ([]PermissionGroup, error) {
	var groups []PermissionGroup
	if err := c.do(ctx, http.MethodGet, "/api/permissions/group", nil, &groups); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// CreateGroup creates a new permission group
func (c *Metabase) CreateGroup(ctx context.Context, name string) (*PermissionGroup, error) {
	body := map[string]string{"name": name}

	var group PermissionGroup
	if err := c.do(ctx, http.MethodPost, "/api/permissions/group", body, &group); err != nil {
		return nil, fmt.Errorf("failed to create group %q: %w", name, err)
	}

	c.logger.Info("Created permission group",
		zap.String("name", name),
		zap.Int64("group_id", group.ID))

	return &group, nil
}

// DeleteGroup deletes a permission group
func (c *Metabase) DeleteGroup(ctx context.Context, groupID int64) error {
	path := fmt.Sprintf("/api/permissions/group/%d", groupID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", groupID, err)
	}
	return nil
}

// GetPermissionsGraph retrieves the global data-permission graph
func (c *Metabase) GetPermissionsGraph(ctx context.Context) (*PermissionsGraph, error) {
	var graph PermissionsGraph
	if err := c.do(ctx, http.MethodGet, "/api/permissions/graph", nil, &graph); err != nil {
		return nil, fmt.Errorf("failed to get permissions graph: %w", err)
	}
	return &graph, nil
}

// PutPermissionsGraph writes back the global data-permission graph. Metabase
// rejects the write when the revision is stale.
func (c *Metabase) PutPermissionsGraph(ctx context.Context, graph *PermissionsGraph) error {
	if err := c.do(ctx, http.MethodPut, "/api/permissions/graph", graph, nil); err != nil {
		return fmt.Errorf("failed to put permissions graph: %w", err)
	}
	return nil
}

// ListSandboxes retrieves all row-level-security rules
func (c *Metabase) ListSandboxes(ctx context.Context) ([]Sandbox, error) {
	var sandboxes []Sandbox
	if err := c.do(ctx, http.MethodGet, "/api/mt/gtap", nil, &sandboxes); err != nil {
		return nil, fmt.Errorf("failed to list sandboxes: %w", err)
	}
	return sandboxes, nil
}

// CreateSandbox creates a row-level-security rule
func (c *Metabase) CreateSandbox(ctx context.Context, sandbox Sandbox) (*Sandbox, error) {
	var created Sandbox
	if err := c.do(ctx, http.MethodPost, "/api/mt/gtap", sandbox, &created); err != nil {
		return nil, fmt.Errorf("failed to create sandbox for group %d: %w", sandbox.GroupID, err)
	}
	return &created, nil
}

// DeleteSandbox deletes a row-level-security rule
func (c *Metabase) DeleteSandbox(ctx context.Context, sandboxID int64) error {
	path := fmt.Sprintf("/api/mt/gtap/%d", sandboxID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete sandbox %d: %w", sandboxID, err)
	}
	return nil
}

// GetCollectionGraph retrieves the global collection-permission graph
func (c *Metabase) GetCollectionGraph(ctx context.Context) (*CollectionGraph, error) {
	var graph CollectionGraph
	if err := c.do(ctx, http.MethodGet, "/api/collection/graph", nil, &graph); err != nil {
		return nil, fmt.Errorf("failed to get collection graph: %w", err)
	}
	return &graph, nil
}

// PutCollectionGraph writes back the global collection-permission graph
func (c *Metabase) PutCollectionGraph(ctx context.Context, graph *CollectionGraph) error {
	if err := c.do(ctx, http.MethodPut, "/api/collection/graph", graph, nil); err != nil {
		return fmt.Errorf("failed to put collection graph: %w", err)
	}
	return nil
}

// CreateCollection creates a collection under the given parent
func (c *Metabase) CreateCollection(ctx context.Context, req CreateCollectionRequest) (*Collection, error) {
	var collection Collection
	if err := c.do(ctx, http.MethodPost, "/api/collection", req, &collection); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", req.Name, err)
	}

	c.logger.Info("Created collection",
		zap.String("name", req.Name),
		zap.Int64("collection_id", collection.ID),
		zap.Int64("parent_id", req.ParentID))

	return &collection, nil
}

// ArchiveCollection archives a collection
func (c *Metabase) ArchiveCollection(ctx context.Context, collectionID int64) error {
	path := fmt.Sprintf("/api/collection/%d", collectionID)
	body := map[string]bool{"archived": true}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to archive collection %d: %w", collectionID, err)
	}
	return nil
}

// CopyDashboard deep-copies a template dashboard, including its underlying
// cards, into the target collection.
func (c *Metabase) CopyDashboard(ctx context.Context, req CopyDashboardRequest) (*Dashboard, error) {
	path := fmt.Sprintf("/api/dashboard/%d/copy", req.TemplateID)
	body := map[string]any{
		"name":          req.Name,
		"description":   req.Description,
		"collection_id": req.CollectionID,
		"is_deep_copy":  true,
	}

	var dashboard Dashboard
	if err := c.do(ctx, http.MethodPost, path, body, &dashboard); err != nil {
		return nil, fmt.Errorf("failed to copy dashboard %d: %w", req.TemplateID, err)
	}

	c.logger.Info("Copied dashboard",
		zap.Int64("template_id", req.TemplateID),
		zap.Int64("dashboard_id", dashboard.ID),
		zap.Int64("collection_id", req.CollectionID))

	return &dashboard, nil
}

// Ping checks that the Metabase instance is reachable
func (c *Metabase) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		return fmt.Errorf("metabase health check failed: %w", err)
	}
	return nil
}

// do performs a single JSON request against the Metabase API
func (c *Metabase) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.metrics.RecordRemoteCall(method, "error")
		c.logger.Error("Metabase request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	c.metrics.RecordRemoteCall(method, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		c.logger.Error("Metabase request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
