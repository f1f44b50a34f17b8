package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
)

// ListDevices returns all paired devices for a user
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeAPIError(w, NewInvalidRequestError("user id is required", nil), logger)
		return
	}

	devices, err := h.devices.List(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list devices", "error", err, "userId", userID)
		writeError(w, err, http.StatusInternalServerError, logger)
		return
	}

	resp := &v1alpha1.DeviceListResponse{Devices: make([]v1alpha1.Device, 0, len(devices))}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, v1alpha1.Device{
			UserID:          d.UserID,
			DeviceID:        d.DeviceID,
			DeviceType:      d.DeviceType,
			DeviceName:      d.DeviceName,
			PairedAt:        d.PairedAt,
			ConnectionState: v1alpha1.ConnectionState(d.ConnectionState),
			LastActiveAt:    d.LastActiveAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// UnpairDevice removes a paired device. Unpairing an unknown device
// returns 404; a second unpair of the same device does too, without
// cascading an error to the caller.
func (h *Handler) UnpairDevice(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	userID := chi.URLParam(r, "userID")
	deviceID := chi.URLParam(r, "deviceID")
	if userID == "" || deviceID == "" {
		writeAPIError(w, NewInvalidRequestError("user id and device id are required", nil), logger)
		return
	}

	err := h.devices.Unpair(r.Context(), userID, deviceID)
	if errors.Is(err, device.ErrNotFound) {
		writeError(w, err, http.StatusNotFound, logger)
		return
	}
	if err != nil {
		logger.Error("failed to unpair device",
			"error", err,
			"userId", userID,
			"deviceId", deviceID,
		)
		writeError(w, err, http.StatusInternalServerError, logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&v1alpha1.UnpairResponse{Success: true}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// TouchDevice records activity for a paired device
func (h *Handler) TouchDevice(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	logger := h.logger.With("requestID", reqID)

	userID := chi.URLParam(r, "userID")
	deviceID := chi.URLParam(r, "deviceID")
	if userID == "" || deviceID == "" {
		writeAPIError(w, NewInvalidRequestError("user id and device id are required", nil), logger)
		return
	}

	if err := h.devices.TouchLastActive(r.Context(), userID, deviceID); err != nil {
		if !errors.Is(err, device.ErrNotFound) {
			logger.Error("failed to update device activity",
				"error", err,
				"userId", userID,
				"deviceId", deviceID,
			)
		}
		writeError(w, err, http.StatusInternalServerError, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
