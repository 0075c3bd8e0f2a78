// Package handler provides HTTP request handlers for the provisioning API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apierrors "github.com/soffront/metabase-provisioner/internal/errors"
	"github.com/soffront/metabase-provisioner/internal/model"
	"github.com/soffront/metabase-provisioner/internal/service"
)

// DefaultModule is the dashboard module assumed when a request omits one.
const DefaultModule = "Management"

// ResolveRequest is the body of POST /v1/dashboards/resolve.
type ResolveRequest struct {
	ProjectID int64  `json:"project_id"`
	Module    string `json:"module,omitempty"`
}

// ResolveResponse is the body returned for a resolved dashboard.
type ResolveResponse struct {
	ProjectID   int64  `json:"project_id"`
	Module      string `json:"module"`
	DashboardID int64  `json:"dashboard_id"`
}

// TokenRequest is the body of POST /v1/tokens.
type TokenRequest struct {
	ProjectID int64  `json:"project_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Module    string `json:"module,omitempty"`
}

// TokenResponse is the body returned for an issued embed token.
type TokenResponse struct {
	Token       string `json:"token"`
	ExpiresAt   int64  `json:"expires_at"`
	DashboardID int64  `json:"dashboard_id"`
}

// MappingsResponse is the body of GET /v1/mappings.
type MappingsResponse struct {
	Mappings []*model.TenantMapping `json:"mappings"`
	Count    int                    `json:"count"`
}

// Handlers contains all HTTP handlers and their dependencies. Request
// deadlines come from the timeout middleware on the router, so handlers use
// the request context as-is.
type Handlers struct {
	provisions   *service.ProvisionService
	tokens       *service.TokenService
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	provisions *service.ProvisionService,
	tokens *service.TokenService,
	errorHandler *apierrors.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		provisions:   provisions,
		tokens:       tokens,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ResolveDashboard handles POST /v1/dashboards/resolve requests.
func (h *Handlers) ResolveDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}
	if req.ProjectID <= 0 {
		h.errorHandler.WriteValidationError(w, "project_id must be a positive integer", requestID)
		return
	}
	if req.Module == "" {
		req.Module = DefaultModule
	}

	dashboardID, err := h.provisions.Resolve(r.Context(), req.ProjectID, req.Module)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, ResolveResponse{
		ProjectID:   req.ProjectID,
		Module:      req.Module,
		DashboardID: dashboardID,
	})
}

// IssueToken handles POST /v1/tokens requests. The dashboard is resolved
// first so a token is never issued for a tenant without provisioned
// resources.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.WriteValidationError(w, "invalid request body", requestID)
		return
	}
	if req.ProjectID <= 0 {
		h.errorHandler.WriteValidationError(w, "project_id must be a positive integer", requestID)
		return
	}
	if req.Email == "" {
		h.errorHandler.WriteValidationError(w, "email is required", requestID)
		return
	}
	if req.Module == "" {
		req.Module = DefaultModule
	}

	dashboardID, err := h.provisions.Resolve(r.Context(), req.ProjectID, req.Module)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.IssueToken(req.ProjectID, service.Profile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, TokenResponse{
		Token:       token,
		ExpiresAt:   expiresAt.Unix(),
		DashboardID: dashboardID,
	})
}

// ListMappings handles GET /v1/mappings requests.
func (h *Handlers) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.provisions.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, MappingsResponse{
		Mappings: mappings,
		Count:    len(mappings),
	})
}

// DeleteMapping handles DELETE /v1/mappings/{project_id} requests.
func (h *Handlers) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	projectID, err := strconv.ParseInt(mux.Vars(r)["project_id"], 10, 64)
	if err != nil || projectID <= 0 {
		h.errorHandler.WriteValidationError(w, "project_id must be a positive integer", requestID)
		return
	}

	if _, err := h.provisions.Delete(r.Context(), projectID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSONResponse writes a JSON response to the HTTP response writer.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
