package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/service"
	"github.com/soffront/metabase-provisioner/internal/store"
)

func TestHandler_HTTPStatus(t *testing.T) {
	h := NewHandler(zap.NewNop())

	assert.Equal(t, http.StatusOK, h.HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, h.HTTPStatus(service.ErrInvalidTenant))
	assert.Equal(t, http.StatusBadRequest, h.HTTPStatus(service.ErrUnknownModule))
	assert.Equal(t, http.StatusNotFound, h.HTTPStatus(store.ErrNotFound))
	assert.Equal(t, http.StatusBadGateway, h.HTTPStatus(&client.APIError{StatusCode: 500}))
	assert.Equal(t, http.StatusBadGateway, h.HTTPStatus(&client.APIError{StatusCode: 403}))
	assert.Equal(t, http.StatusInternalServerError, h.HTTPStatus(assert.AnError))
}

func TestHandler_HTTPStatus_WrappedErrors(t *testing.T) {
	h := NewHandler(zap.NewNop())

	wrapped := fmt.Errorf("failed to resolve: %w", service.ErrUnknownModule)
	assert.Equal(t, http.StatusBadRequest, h.HTTPStatus(wrapped))

	wrappedAPI := fmt.Errorf("failed to copy dashboard: %w", &client.APIError{StatusCode: 503})
	assert.Equal(t, http.StatusBadGateway, h.HTTPStatus(wrappedAPI))
}

func TestHandler_ErrorCode(t *testing.T) {
	h := NewHandler(zap.NewNop())

	assert.Equal(t, ErrorCodeInvalidProject, h.ErrorCode(service.ErrInvalidTenant))
	assert.Equal(t, ErrorCodeUnknownModule, h.ErrorCode(service.ErrUnknownModule))
	assert.Equal(t, ErrorCodeTenantNotFound, h.ErrorCode(store.ErrNotFound))
	assert.Equal(t, ErrorCodeRemoteError, h.ErrorCode(&client.APIError{StatusCode: 500}))
	assert.Equal(t, ErrorCodeInternalError, h.ErrorCode(assert.AnError))
}

func TestHandler_HandleError_WritesEnvelope(t *testing.T) {
	h := NewHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/dashboards/resolve", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, service.ErrUnknownModule)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrorCodeUnknownModule, resp.ErrorCode)
	assert.Equal(t, "req-123", resp.RequestID)
}

func TestHandler_WriteValidationError(t *testing.T) {
	h := NewHandler(zap.NewNop())

	rec := httptest.NewRecorder()
	h.WriteValidationError(rec, "project_id must be a positive integer", "req-123")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ErrorCodeInvalidRequest, resp.ErrorCode)
	assert.Equal(t, "project_id must be a positive integer", resp.Message)
}
