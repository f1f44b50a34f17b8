package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	werrors "github.com/restwell/restwell-pairing/internal/rwpaird/errors"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
)

// APIErrorCode is a machine-readable error code in the wire envelope
type APIErrorCode string

const (
	ErrCodeInvalidRequest  APIErrorCode = "invalid_request"
	ErrCodeNotFound        APIErrorCode = "not_found"
	ErrCodeExpiredToken    APIErrorCode = "expired_token"
	ErrCodeAlreadyRedeemed APIErrorCode = "already_redeemed"
	ErrCodeServerError     APIErrorCode = "server_error"
)

// APIError represents a wire-level error with HTTP status
type APIError struct {
	Code        APIErrorCode
	Description string
	Status      int
	Cause       error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Description + ": " + e.Cause.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewAPIError creates a new APIError with cause
func NewAPIError(code APIErrorCode, description string, status int, cause error) *APIError {
	return &APIError{
		Code:        code,
		Description: description,
		Status:      status,
		Cause:       cause,
	}
}

func NewInvalidRequestError(description string, cause error) *APIError {
	return NewAPIError(ErrCodeInvalidRequest, description, http.StatusBadRequest, cause)
}

func NewServerError(description string, cause error) *APIError {
	return NewAPIError(ErrCodeServerError, description, http.StatusInternalServerError, cause)
}

// mapToAPIError translates domain errors into wire errors
func mapToAPIError(err error, defaultStatus int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, pairing.ErrInvalidRequest):
		return NewAPIError(ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, pairing.ErrTokenNotFound):
		return NewAPIError(ErrCodeNotFound, "pairing token not found", http.StatusNotFound, err)
	case errors.Is(err, pairing.ErrTokenExpired):
		return NewAPIError(ErrCodeExpiredToken, "pairing token has expired", http.StatusGone, err)
	case errors.Is(err, pairing.ErrAlreadyRedeemed):
		return NewAPIError(ErrCodeAlreadyRedeemed, "pairing token already redeemed", http.StatusConflict, err)
	case errors.Is(err, device.ErrNotFound):
		return NewAPIError(ErrCodeNotFound, "device not paired", http.StatusNotFound, err)
	case werrors.IsInvalidInput(err):
		return NewAPIError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, err)
	case werrors.IsNotFound(err):
		return NewAPIError(ErrCodeNotFound, "resource not found", http.StatusNotFound, err)
	case werrors.IsConflict(err):
		return NewAPIError(ErrCodeAlreadyRedeemed, "resource conflict", http.StatusConflict, err)
	case werrors.IsTransient(err):
		return NewAPIError(ErrCodeServerError, "temporarily unavailable, retry", http.StatusServiceUnavailable, err)
	default:
		return NewAPIError(ErrCodeServerError, "internal server error", defaultStatus, err)
	}
}

// writeError writes any error as an appropriate wire error response
func writeError(w http.ResponseWriter, err error, defaultStatus int, logger *slog.Logger) {
	writeAPIError(w, mapToAPIError(err, defaultStatus), logger)
}

// writeAPIError writes a pre-constructed wire error response
func writeAPIError(w http.ResponseWriter, err *APIError, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(err.Status)

	response := struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description,omitempty"`
	}{
		Error:            string(err.Code),
		ErrorDescription: err.Description,
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to write error response",
			"error", encodeErr,
			"originalError", err,
		)
	}
}
