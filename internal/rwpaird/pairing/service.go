package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	werrors "github.com/restwell/restwell-pairing/internal/rwpaird/errors"
)

// registryRetries bounds the at-least-once device registry upsert after a
// redemption has committed
const registryRetries = 3

// IssueResult carries a freshly issued token plus issuance metadata
type IssueResult struct {
	Token *Token
	// Superseded reports that a prior pending token for the same
	// (user, device) pair was invalidated by this issuance
	Superseded bool
}

// RedeemResult reports a successful redemption
type RedeemResult struct {
	UserID     string
	DeviceID   string
	DeviceType DeviceType
	RedeemedAt time.Time
}

// StatusResult is the status endpoint's view of a token. Unknown tokens
// report StatusNotFound rather than an error.
type StatusResult string

const (
	StatusResultPending  StatusResult = "pending"
	StatusResultRedeemed StatusResult = "redeemed"
	StatusResultExpired  StatusResult = "expired"
	StatusResultNotFound StatusResult = "not_found"
)

// Service manages the pairing token flow
type Service interface {
	// Issue creates a pending pairing token, superseding any pending
	// token for the same (user, device) pair
	Issue(ctx context.Context, userID, deviceID string, deviceType DeviceType, deviceName string) (*IssueResult, error)

	// Redeem consumes a token on behalf of a secondary device and
	// registers the paired device
	Redeem(ctx context.Context, token, fingerprint string) (*RedeemResult, error)

	// Status reports the current state of a token. Expiry is computed
	// lazily against the wall clock.
	Status(ctx context.Context, token string) (StatusResult, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo    Repository
	devices device.Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new pairing service
func NewService(repo Repository, devices device.Service, logger *slog.Logger) *DefaultService {
	return &DefaultService{
		repo:    repo,
		devices: devices,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *DefaultService) WithClock(now func() time.Time) *DefaultService {
	s.now = now
	return s
}

func (s *DefaultService) Issue(ctx context.Context, userID, deviceID string, deviceType DeviceType, deviceName string) (*IssueResult, error) {
	if userID == "" || deviceID == "" || deviceName == "" {
		return nil, fmt.Errorf("%w: user id, device id and device name are required", ErrInvalidRequest)
	}
	if _, err := ParseDeviceType(string(deviceType)); err != nil {
		return nil, err
	}

	now := s.now()

	token, err := NewToken(userID, deviceID, deviceType, deviceName, now)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	// At most one pending token per (user, device) pair: the store
	// invalidates any prior token and persists the new one atomically,
	// so concurrent issuances for the same pair serialize.
	superseded, err := s.repo.CreatePending(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("create pending token: %w", err)
	}

	s.logger.Info("pairing token issued",
		"userId", userID,
		"deviceId", deviceID,
		"deviceType", deviceType,
		"expiresAt", token.ExpiresAt,
		"superseded", superseded,
	)

	return &IssueResult{Token: token, Superseded: superseded > 0}, nil
}

func (s *DefaultService) Redeem(ctx context.Context, token, fingerprint string) (*RedeemResult, error) {
	if token == "" || fingerprint == "" {
		return nil, fmt.Errorf("%w: token and device fingerprint are required", ErrInvalidRequest)
	}

	now := s.now()

	// The store-level CAS is the commit point: exactly one concurrent
	// caller observes the pending->redeemed transition. A device
	// replaying its own redemption gets the redeemed record back, so
	// the registry upsert below runs again for it.
	redeemed, err := s.repo.Redeem(ctx, token, fingerprint, now)
	if err != nil {
		return nil, err
	}

	redeemedAt := now
	if redeemed.RedeemedAt != nil {
		redeemedAt = *redeemed.RedeemedAt
	}

	// Registry insertion is at-least-once on top of an idempotent
	// upsert; the committed redemption stays the source of truth.
	entry := &device.PairedDevice{
		UserID:          redeemed.UserID,
		DeviceID:        redeemed.DeviceID,
		DeviceType:      string(redeemed.DeviceType),
		DeviceName:      redeemed.DeviceName,
		PairedAt:        redeemedAt,
		ConnectionState: device.StateConnected,
		LastActiveAt:    now,
	}

	var pairErr error
	for attempt := 0; attempt < registryRetries; attempt++ {
		if pairErr = s.devices.Pair(ctx, entry); pairErr == nil {
			break
		}
		s.logger.Warn("device registry upsert failed, retrying",
			"userId", redeemed.UserID,
			"deviceId", redeemed.DeviceID,
			"attempt", attempt+1,
			"error", pairErr,
		)
	}
	if pairErr != nil {
		// The redemption committed; the caller may retry safely because
		// the upsert is idempotent.
		return nil, fmt.Errorf("register paired device: %w: %w", werrors.ErrTransient, pairErr)
	}

	s.logger.Info("pairing token redeemed",
		"userId", redeemed.UserID,
		"deviceId", redeemed.DeviceID,
		"fingerprint", fingerprint,
	)

	return &RedeemResult{
		UserID:     redeemed.UserID,
		DeviceID:   redeemed.DeviceID,
		DeviceType: redeemed.DeviceType,
		RedeemedAt: redeemedAt,
	}, nil
}

func (s *DefaultService) Status(ctx context.Context, token string) (StatusResult, error) {
	if token == "" {
		return "", fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}

	record, err := s.repo.FindByToken(ctx, token)
	if errors.Is(err, ErrTokenNotFound) {
		return StatusResultNotFound, nil
	}
	if err != nil {
		return "", err
	}

	switch record.Status {
	case StatusRedeemed:
		return StatusResultRedeemed, nil
	case StatusExpired:
		return StatusResultExpired, nil
	default:
		// A stored pending row past its TTL is already expired even if
		// no reaping has run.
		if record.IsExpired(s.now()) {
			return StatusResultExpired, nil
		}
		return StatusResultPending, nil
	}
}
