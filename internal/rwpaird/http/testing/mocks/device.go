package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
)

// DeviceService implements a mock device registry service
type DeviceService struct {
	mock.Mock
}

func (m *DeviceService) Pair(ctx context.Context, d *device.PairedDevice) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *DeviceService) Unpair(ctx context.Context, userID, deviceID string) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}

func (m *DeviceService) List(ctx context.Context, userID string) ([]device.PairedDevice, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]device.PairedDevice), args.Error(1)
}

func (m *DeviceService) TouchLastActive(ctx context.Context, userID, deviceID string) error {
	args := m.Called(ctx, userID, deviceID)
	return args.Error(0)
}
