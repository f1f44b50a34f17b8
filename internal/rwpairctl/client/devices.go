package client

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
)

// ListDevices returns the devices paired to a user account
func (c *Client) ListDevices(ctx context.Context, userID string) ([]v1alpha1.Device, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path.Join("/api/v1alpha1/devices", userID), nil)
	if err != nil {
		return nil, err
	}

	var list v1alpha1.DeviceListResponse
	if err := decodeResponse(resp, &list); err != nil {
		return nil, fmt.Errorf("error listing devices: %w", err)
	}
	return list.Devices, nil
}

// RemoveDevice unpairs a device from a user account
func (c *Client) RemoveDevice(ctx context.Context, userID, deviceID string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, path.Join("/api/v1alpha1/devices", userID, deviceID), nil)
	if err != nil {
		return err
	}

	var result v1alpha1.UnpairResponse
	if err := decodeResponse(resp, &result); err != nil {
		return fmt.Errorf("error removing device: %w", err)
	}
	return nil
}

// TouchDevice records device activity on the server
func (c *Client) TouchDevice(ctx context.Context, userID, deviceID string) error {
	resp, err := c.doRequest(ctx, http.MethodPut, path.Join("/api/v1alpha1/devices", userID, deviceID, "last-active"), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := handleResponse(resp); err != nil {
		return fmt.Errorf("error recording device activity: %w", err)
	}
	return nil
}
