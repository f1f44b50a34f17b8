package v1alpha1

import "time"

// ConnectionState describes whether a paired device is currently connected
type ConnectionState string

const (
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
)

// Device is the wire representation of a paired device
type Device struct {
	// UserID is the owning account
	UserID string `json:"user_id"`
	// DeviceID identifies the device within the account
	DeviceID string `json:"device_id"`
	// DeviceType is "laptop" or "mobile"
	DeviceType string `json:"device_type"`
	// DeviceName is the human-readable label supplied at pairing time
	DeviceName string `json:"device_name"`
	// PairedAt is when the pairing token was redeemed
	PairedAt time.Time `json:"paired_at"`
	// ConnectionState is "connected" or "disconnected"
	ConnectionState ConnectionState `json:"connection_state"`
	// LastActiveAt is the most recent activity report
	LastActiveAt time.Time `json:"last_active_at"`
}

// DeviceListResponse wraps the paired devices of a user
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// UnpairResponse reports the outcome of an unpair request
type UnpairResponse struct {
	Success bool `json:"success"`
}
