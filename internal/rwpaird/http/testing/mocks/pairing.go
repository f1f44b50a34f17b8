package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
)

// PairingService implements a mock pairing service
type PairingService struct {
	mock.Mock
}

func (m *PairingService) Issue(ctx context.Context, userID, deviceID string, deviceType pairing.DeviceType, deviceName string) (*pairing.IssueResult, error) {
	args := m.Called(ctx, userID, deviceID, deviceType, deviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pairing.IssueResult), args.Error(1)
}

func (m *PairingService) Redeem(ctx context.Context, token, fingerprint string) (*pairing.RedeemResult, error) {
	args := m.Called(ctx, token, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pairing.RedeemResult), args.Error(1)
}

func (m *PairingService) Status(ctx context.Context, token string) (pairing.StatusResult, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(pairing.StatusResult), args.Error(1)
}
