// Package errors provides error handling and HTTP status code mapping for the provisioning API.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/client"
	"github.com/soffront/metabase-provisioner/internal/service"
	"github.com/soffront/metabase-provisioner/internal/store"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	// General errors
	ErrorCodeUnknown        ErrorCode = "UNKNOWN"
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceDown    ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout        ErrorCode = "TIMEOUT"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"

	// Provisioning errors
	ErrorCodeInvalidProject ErrorCode = "INVALID_PROJECT_ID"
	ErrorCodeUnknownModule  ErrorCode = "UNKNOWN_MODULE"
	ErrorCodeTenantNotFound ErrorCode = "TENANT_NOT_FOUND"

	// Upstream errors
	ErrorCodeRemoteError ErrorCode = "METABASE_ERROR"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError processes an error and writes an appropriate HTTP response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := h.HTTPStatus(err)
	errorCode := h.ErrorCode(err)

	requestID := r.Header.Get("X-Request-ID")

	h.WriteErrorResponse(w, statusCode, errorCode, err.Error(), requestID)
}

// HTTPStatus converts a service error to an HTTP status code.
func (h *Handler) HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		// Upstream failures, including auth rejections from a misconfigured
		// API key, surface as bad gateway rather than a caller error.
		return http.StatusBadGateway
	}

	switch {
	case stderrors.Is(err, service.ErrInvalidTenant):
		return http.StatusBadRequest
	case stderrors.Is(err, service.ErrUnknownModule):
		return http.StatusBadRequest
	case stderrors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode converts a service error to an application error code.
func (h *Handler) ErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeUnknown
	}

	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		return ErrorCodeRemoteError
	}

	switch {
	case stderrors.Is(err, service.ErrInvalidTenant):
		return ErrorCodeInvalidProject
	case stderrors.Is(err, service.ErrUnknownModule):
		return ErrorCodeUnknownModule
	case stderrors.Is(err, store.ErrNotFound):
		return ErrorCodeTenantNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	default:
		return ErrorCodeInternalError
	}
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteInternalError writes an internal error response.
func (h *Handler) WriteInternalError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, message, requestID)
}

// WriteServiceUnavailable writes a service unavailable response.
func (h *Handler) WriteServiceUnavailable(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusServiceUnavailable, ErrorCodeServiceDown, message, requestID)
}

// WriteRateLimitedError writes a rate limit exceeded response.
func (h *Handler) WriteRateLimitedError(w http.ResponseWriter, requestID string) {
	h.WriteErrorResponse(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded", requestID)
}
