package device

import (
	"context"
	"log/slog"
	"time"
)

// Service manages the paired device registry
type Service interface {
	// Pair records a device as paired to a user. Idempotent: pairing the
	// same (user, device) again refreshes the entry.
	Pair(ctx context.Context, d *PairedDevice) error

	// Unpair removes a paired device. Returns ErrNotFound when the
	// device was never paired or was already removed.
	Unpair(ctx context.Context, userID, deviceID string) error

	// List returns the user's paired devices
	List(ctx context.Context, userID string) ([]PairedDevice, error)

	// TouchLastActive records device activity
	TouchLastActive(ctx context.Context, userID, deviceID string) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new device registry service
func NewService(repo Repository, logger *slog.Logger) *DefaultService {
	return &DefaultService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *DefaultService) Pair(ctx context.Context, d *PairedDevice) error {
	if d.ConnectionState == "" {
		d.ConnectionState = StateConnected
	}
	if d.LastActiveAt.IsZero() {
		d.LastActiveAt = d.PairedAt
	}

	if err := s.repo.Upsert(ctx, d); err != nil {
		return err
	}

	s.logger.Info("device paired",
		"userId", d.UserID,
		"deviceId", d.DeviceID,
		"deviceType", d.DeviceType,
	)
	return nil
}

func (s *DefaultService) Unpair(ctx context.Context, userID, deviceID string) error {
	if err := s.repo.Delete(ctx, userID, deviceID); err != nil {
		return err
	}

	s.logger.Info("device unpaired",
		"userId", userID,
		"deviceId", deviceID,
	)
	return nil
}

func (s *DefaultService) List(ctx context.Context, userID string) ([]PairedDevice, error) {
	return s.repo.List(ctx, userID)
}

func (s *DefaultService) TouchLastActive(ctx context.Context, userID, deviceID string) error {
	return s.repo.TouchLastActive(ctx, userID, deviceID, s.now())
}
