package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
)

// IssuePairingToken handles pairing token issuance for a pending device.
// The requester renders the returned payload as a QR code and polls the
// status endpoint until the token is redeemed or expires.
func (h *Handler) IssuePairingToken(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	req, err := decodeTokenRequest(w, r)
	if err != nil {
		logger.Error("invalid token request", "error", err)
		writeError(w, err, http.StatusBadRequest, logger)
		return
	}

	logger = logger.With(
		"userId", req.UserID,
		"deviceId", req.DeviceID,
	)

	result, err := h.pairing.Issue(r.Context(), req.UserID, req.DeviceID, pairing.DeviceType(req.DeviceType), req.DeviceName)
	if err != nil {
		logger.Error("failed to issue pairing token", "error", err)
		writeError(w, err, http.StatusInternalServerError, logger)
		return
	}

	resp := &v1alpha1.PairingTokenResponse{
		Token:         result.Token.Token,
		RenderPayload: result.Token.RenderPayload(),
		ExpiresAt:     result.Token.ExpiresAt,
		PollInterval:  pairing.PollIntervalSeconds,
		Superseded:    result.Superseded,
	}

	// Token responses must never be cached
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// decodeTokenRequest validates the issuance request before any state
// mutation happens
func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (*v1alpha1.PairingTokenRequest, error) {
	if r.Body == nil {
		return nil, NewInvalidRequestError("request body is required", nil)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		return nil, NewInvalidRequestError("request too large or malformed", err)
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return nil, NewInvalidRequestError("request body is required", nil)
	}

	var req v1alpha1.PairingTokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, NewInvalidRequestError("invalid request format", err)
	}

	if req.UserID == "" {
		return nil, NewInvalidRequestError("user_id is required", nil)
	}
	if req.DeviceID == "" {
		return nil, NewInvalidRequestError("device_id is required", nil)
	}
	if req.DeviceName == "" {
		return nil, NewInvalidRequestError("device_name is required", nil)
	}
	if _, err := pairing.ParseDeviceType(req.DeviceType); err != nil {
		return nil, NewInvalidRequestError("device_type must be laptop or mobile", err)
	}

	return &req, nil
}

// GetPairingStatus reports the current state of a token. The response is
// always 200; unknown tokens are reported as a not_found status so that
// pollers can distinguish a dead token from a failed check.
func (h *Handler) GetPairingStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	token := chi.URLParam(r, "token")

	status, err := h.pairing.Status(r.Context(), token)
	if err != nil {
		logger.Error("failed to get pairing status", "error", err)
		writeError(w, err, http.StatusInternalServerError, logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	resp := &v1alpha1.PairingStatusResponse{Status: v1alpha1.PairingStatus(status)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// RedeemPairingToken consumes a token on behalf of a secondary device.
// Exactly one concurrent redemption of a given token succeeds.
func (h *Handler) RedeemPairingToken(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	if r.Body == nil {
		writeAPIError(w, NewInvalidRequestError("request body is required", nil), logger)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		writeAPIError(w, NewInvalidRequestError("request too large or malformed", err), logger)
		return
	}
	defer r.Body.Close()

	var req v1alpha1.RedeemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeAPIError(w, NewInvalidRequestError("invalid request format", err), logger)
		return
	}
	if req.Token == "" {
		writeAPIError(w, NewInvalidRequestError("token is required", nil), logger)
		return
	}
	if req.DeviceFingerprint == "" {
		writeAPIError(w, NewInvalidRequestError("device_fingerprint is required", nil), logger)
		return
	}

	result, err := h.pairing.Redeem(r.Context(), req.Token, req.DeviceFingerprint)
	if err != nil {
		// Redemption failures carry a reason the redeeming device can
		// show; they are not silently retried server-side.
		apiErr := mapToAPIError(err, http.StatusInternalServerError)
		if apiErr.Status >= 500 {
			logger.Error("failed to redeem pairing token", "error", err)
			writeAPIError(w, apiErr, logger)
			return
		}

		logger.Info("pairing token redemption rejected",
			"reason", apiErr.Code,
			"error", err,
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(apiErr.Status)
		resp := &v1alpha1.RedeemResponse{Success: false, Reason: string(apiErr.Code)}
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			logger.Error("failed to encode response", "error", encErr)
		}
		return
	}

	logger.Info("pairing token redeemed",
		"userId", result.UserID,
		"deviceId", result.DeviceID,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	resp := &v1alpha1.RedeemResponse{
		Success:  true,
		UserID:   result.UserID,
		DeviceID: result.DeviceID,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
