// Package device implements the paired device registry
package device

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound = errors.New("paired device not found")
)

// ConnectionState describes whether a paired device is currently connected
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// PairedDevice is one entry in a user's device registry, created on
// successful redemption of a pairing token
type PairedDevice struct {
	UserID          string
	DeviceID        string
	DeviceType      string
	DeviceName      string
	PairedAt        time.Time
	ConnectionState ConnectionState
	LastActiveAt    time.Time
}

// Repository defines storage operations for paired devices. Entries are
// keyed by (UserID, DeviceID).
type Repository interface {
	// Upsert inserts or refreshes a paired device entry. Replaying the
	// same redemption is a no-op beyond refreshing timestamps.
	Upsert(ctx context.Context, d *PairedDevice) error

	// Find returns a single entry or ErrNotFound
	Find(ctx context.Context, userID, deviceID string) (*PairedDevice, error)

	// List returns all entries for a user ordered by pairing time
	List(ctx context.Context, userID string) ([]PairedDevice, error)

	// Delete removes an entry, returning ErrNotFound when absent
	Delete(ctx context.Context, userID, deviceID string) error

	// TouchLastActive updates the activity timestamp of an entry
	TouchLastActive(ctx context.Context, userID, deviceID string, at time.Time) error
}
