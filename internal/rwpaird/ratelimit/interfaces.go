// Package ratelimit provides request rate limiting backed by a shared store
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Limit types used by the pairing API
const (
	// TypeTokenIssue limits pairing token issuance per user
	TypeTokenIssue = "token_issue"
	// TypeTokenRedeem limits redemption attempts per remote IP
	TypeTokenRedeem = "token_redeem"
	// TypeStatusPoll limits status polling per token
	TypeStatusPoll = "status_poll"
	// TypeAPIRequest limits general API requests per remote IP
	TypeAPIRequest = "api_request"
)

// Common errors
var (
	ErrLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidLimit  = errors.New("invalid rate limit configuration")
	ErrInvalidKey    = errors.New("invalid rate limit key")
	ErrStoreError    = errors.New("rate limit store error")
)

// LimitKey identifies a specific rate limit
type LimitKey struct {
	Type     string // e.g., "token_issue", "status_poll"
	Token    string // pairing token or user identifier
	RemoteIP string // remote IP for unauthenticated limits
	Endpoint string // API endpoint for specific limits
}

// Limit defines the rate limit configuration
type Limit struct {
	// Rate is the number of operations allowed per period
	Rate int

	// Period is the time window for the rate
	Period time.Duration

	// BurstSize allows a short burst over the rate
	BurstSize int
}

// Store handles rate limit state persistence
type Store interface {
	// Increment attempts to increment a counter and returns the current
	// count. Returns ErrLimitExceeded when the limit is crossed.
	Increment(ctx context.Context, key LimitKey, limit Limit) (int, error)

	// Reset clears a rate limit counter
	Reset(ctx context.Context, key LimitKey) error
}

// Service manages rate limiting for the application
type Service interface {
	// Allow checks if an operation should be allowed
	Allow(ctx context.Context, key LimitKey) error

	// GetLimit returns the configured limit for a key type
	GetLimit(limitType string) Limit

	// Reset clears rate limit counters for a key
	Reset(ctx context.Context, key LimitKey) error

	// RegisterDefaultLimits configures standard rate limits
	RegisterDefaultLimits()
}
