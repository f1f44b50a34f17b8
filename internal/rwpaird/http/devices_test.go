package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	testhttp "github.com/restwell/restwell-pairing/internal/rwpaird/http/testing"
)

func TestListDevices(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	pairedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	th.Devices.On("List", mock.Anything, "user-1").Return([]device.PairedDevice{
		{
			UserID:          "user-1",
			DeviceID:        "laptop-1",
			DeviceType:      "laptop",
			DeviceName:      "My Laptop",
			PairedAt:        pairedAt,
			ConnectionState: device.StateConnected,
			LastActiveAt:    pairedAt,
		},
		{
			UserID:          "user-1",
			DeviceID:        "phone-1",
			DeviceType:      "mobile",
			DeviceName:      "My Phone",
			PairedAt:        pairedAt.Add(time.Hour),
			ConnectionState: device.StateDisconnected,
			LastActiveAt:    pairedAt.Add(2 * time.Hour),
		},
	}, nil).Once()

	req, err := th.MockRequest(http.MethodGet, "/api/v1alpha1/devices/user-1", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp v1alpha1.DeviceListResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Devices, 2)
	assert.Equal(t, "laptop-1", resp.Devices[0].DeviceID)
	assert.Equal(t, "mobile", resp.Devices[1].DeviceType)
	assert.Equal(t, v1alpha1.ConnectionStateDisconnected, resp.Devices[1].ConnectionState)
}

func TestListDevicesEmpty(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	th.Devices.On("List", mock.Anything, "user-2").Return([]device.PairedDevice(nil), nil).Once()

	req, err := th.MockRequest(http.MethodGet, "/api/v1alpha1/devices/user-2", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp v1alpha1.DeviceListResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Devices)
	assert.Empty(t, resp.Devices)
}

func TestUnpairDevice(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	th.Devices.On("Unpair", mock.Anything, "user-1", "phone-1").Return(nil).Once()

	req, err := th.MockRequest(http.MethodDelete, "/api/v1alpha1/devices/user-1/phone-1", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp v1alpha1.UnpairResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestUnpairDeviceNotFound(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	// An unpaired (or already unpaired) device is a 404, not a server error
	th.Devices.On("Unpair", mock.Anything, "user-1", "ghost").Return(device.ErrNotFound).Once()

	req, err := th.MockRequest(http.MethodDelete, "/api/v1alpha1/devices/user-1/ghost", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTouchDevice(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	th.Devices.On("TouchLastActive", mock.Anything, "user-1", "phone-1").Return(nil).Once()

	req, err := th.MockRequest(http.MethodPut, "/api/v1alpha1/devices/user-1/phone-1/last-active", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
