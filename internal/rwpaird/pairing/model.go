// Package pairing implements the QR pairing token domain model and business logic
package pairing

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrTokenNotFound   = errors.New("pairing token not found")
	ErrTokenExpired    = errors.New("pairing token expired")
	ErrAlreadyRedeemed = errors.New("pairing token already redeemed")
	ErrInvalidRequest  = errors.New("invalid pairing request parameters")
)

// TokenTTL is how long an issued token stays redeemable
const TokenTTL = 5 * time.Minute

// PollIntervalSeconds is the interval requesters should use between
// status checks
const PollIntervalSeconds = 5

// Status is the lifecycle state of a pairing token
type Status string

const (
	// StatusPending means the token is issued and awaiting redemption
	StatusPending Status = "pending"
	// StatusRedeemed means the token was consumed by a secondary device
	StatusRedeemed Status = "redeemed"
	// StatusExpired means the token passed its TTL or was superseded
	StatusExpired Status = "expired"
)

// DeviceType classifies the device requesting pairing
type DeviceType string

const (
	DeviceTypeLaptop DeviceType = "laptop"
	DeviceTypeMobile DeviceType = "mobile"
)

// ParseDeviceType validates a wire-level device type string
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case DeviceTypeLaptop, DeviceTypeMobile:
		return DeviceType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown device type %q", ErrInvalidRequest, s)
	}
}

// Token represents a single pairing request bound to a pending device
type Token struct {
	Token      string // Opaque unguessable identifier
	UserID     string
	DeviceID   string
	DeviceType DeviceType
	DeviceName string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Status     Status
	RedeemedAt *time.Time
	RedeemedBy *string // Fingerprint of the redeeming device
}

// NewToken creates a pending pairing token for the given device
func NewToken(userID, deviceID string, deviceType DeviceType, deviceName string, now time.Time) (*Token, error) {
	// 32 random bytes, URL-safe encoding without padding
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	return &Token{
		Token:      base64.RawURLEncoding.EncodeToString(raw),
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceType: deviceType,
		DeviceName: deviceName,
		IssuedAt:   now,
		ExpiresAt:  now.Add(TokenTTL),
		Status:     StatusPending,
	}, nil
}

// IsExpired checks whether the token is past its TTL at the given time.
// Expiry is a function of wall-clock time, not only of stored status.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RenderPayload builds the string encoded into the QR code shown to the
// secondary device
func (t *Token) RenderPayload() string {
	return fmt.Sprintf("restwell-pair:%s:%s:%s", t.Token, t.UserID, t.DeviceType)
}

// Repository defines storage operations for pairing tokens
type Repository interface {
	// CreatePending atomically expires any pending token for the new
	// token's (user, device) pair and persists the new token, so that
	// at most one pending token per pair exists at any point. Returns
	// how many prior tokens were superseded.
	CreatePending(ctx context.Context, token *Token) (int, error)

	// FindByToken returns the record for an opaque token value
	FindByToken(ctx context.Context, token string) (*Token, error)

	// Redeem atomically transitions a pending, unexpired token to
	// redeemed. Exactly one concurrent caller wins the transition;
	// a caller replaying a redemption it already won gets the redeemed
	// record back, other losers get ErrTokenNotFound, ErrTokenExpired,
	// or ErrAlreadyRedeemed.
	Redeem(ctx context.Context, token, fingerprint string, now time.Time) (*Token, error)

	// DeleteExpiredBefore removes token records whose expiry is older
	// than the cutoff and returns how many were deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}
