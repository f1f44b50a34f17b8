package v1alpha1

import "time"

// PairingStatus reports the lifecycle state of a pairing token as seen
// by the status endpoint.
type PairingStatus string

const (
	// PairingStatusPending means the token has been issued but not redeemed
	PairingStatusPending PairingStatus = "pending"
	// PairingStatusRedeemed means a secondary device consumed the token
	PairingStatusRedeemed PairingStatus = "redeemed"
	// PairingStatusExpired means the token passed its TTL unredeemed
	PairingStatusExpired PairingStatus = "expired"
	// PairingStatusNotFound means the token is unknown to the server
	PairingStatusNotFound PairingStatus = "not_found"
)

// PairingTokenRequest asks the server to issue a pairing token for a
// pending device.
type PairingTokenRequest struct {
	// UserID identifies the account the device will be paired to
	UserID string `json:"user_id"`
	// DeviceID is the requester-chosen identifier for the pending device
	DeviceID string `json:"device_id"`
	// DeviceType is "laptop" or "mobile"
	DeviceType string `json:"device_type"`
	// DeviceName is a human-readable label for the device
	DeviceName string `json:"device_name"`
}

// PairingTokenResponse carries a freshly issued pairing token
type PairingTokenResponse struct {
	// Token is the opaque single-use pairing token
	Token string `json:"token"`
	// RenderPayload is the string the secondary device scans (QR content)
	RenderPayload string `json:"render_payload"`
	// ExpiresAt is when the token stops being redeemable
	ExpiresAt time.Time `json:"expires_at"`
	// PollInterval is how many seconds the requester should wait between
	// status checks
	PollInterval int `json:"poll_interval"`
	// Superseded reports that a prior pending token for the same device
	// was invalidated by this issuance
	Superseded bool `json:"superseded,omitempty"`
}

// PairingStatusResponse reports the current status of a token
type PairingStatusResponse struct {
	Status PairingStatus `json:"status"`
}

// RedeemRequest consumes a pairing token on behalf of a secondary device
type RedeemRequest struct {
	// Token is the scanned pairing token
	Token string `json:"token"`
	// DeviceFingerprint identifies the redeeming device
	DeviceFingerprint string `json:"device_fingerprint"`
}

// RedeemResponse reports the outcome of a redemption attempt
type RedeemResponse struct {
	Success bool `json:"success"`
	// UserID is the account the device was paired to, on success
	UserID string `json:"user_id,omitempty"`
	// DeviceID is the paired device identifier, on success
	DeviceID string `json:"device_id,omitempty"`
	// Reason explains the failure, when Success is false
	Reason string `json:"reason,omitempty"`
}
