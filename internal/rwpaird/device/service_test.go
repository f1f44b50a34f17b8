package device_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
)

type memRepo struct {
	mu      sync.Mutex
	devices map[string]*device.PairedDevice
}

func newMemRepo() *memRepo {
	return &memRepo{devices: make(map[string]*device.PairedDevice)}
}

func key(userID, deviceID string) string { return userID + "/" + deviceID }

func (r *memRepo) Upsert(_ context.Context, d *device.PairedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.devices[key(d.UserID, d.DeviceID)] = &cp
	return nil
}

func (r *memRepo) Find(_ context.Context, userID, deviceID string) (*device.PairedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[key(userID, deviceID)]
	if !ok {
		return nil, device.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, userID string) ([]device.PairedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []device.PairedDevice
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[key(userID, deviceID)]; !ok {
		return device.ErrNotFound
	}
	delete(r.devices, key(userID, deviceID))
	return nil
}

func (r *memRepo) TouchLastActive(_ context.Context, userID, deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[key(userID, deviceID)]
	if !ok {
		return device.ErrNotFound
	}
	d.LastActiveAt = at
	return nil
}

func newTestService() (device.Service, *memRepo) {
	repo := newMemRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return device.NewService(repo, logger), repo
}

func TestPairDefaultsConnectionState(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	paired := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := svc.Pair(ctx, &device.PairedDevice{
		UserID:     "user-1",
		DeviceID:   "phone-1",
		DeviceType: "mobile",
		DeviceName: "My Phone",
		PairedAt:   paired,
	})
	require.NoError(t, err)

	d, err := repo.Find(ctx, "user-1", "phone-1")
	require.NoError(t, err)
	assert.Equal(t, device.StateConnected, d.ConnectionState)
	assert.Equal(t, paired, d.LastActiveAt)
}

func TestPairIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	d := &device.PairedDevice{
		UserID:     "user-1",
		DeviceID:   "phone-1",
		DeviceType: "mobile",
		DeviceName: "My Phone",
		PairedAt:   time.Now(),
	}
	require.NoError(t, svc.Pair(ctx, d))

	d.DeviceName = "Renamed Phone"
	require.NoError(t, svc.Pair(ctx, d))

	devices, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Renamed Phone", devices[0].DeviceName)
}

func TestUnpairNeverPaired(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Unpair(context.Background(), "user-1", "ghost")
	assert.ErrorIs(t, err, device.ErrNotFound)
}

func TestUnpairTwice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Pair(ctx, &device.PairedDevice{
		UserID:     "user-1",
		DeviceID:   "phone-1",
		DeviceType: "mobile",
		DeviceName: "My Phone",
		PairedAt:   time.Now(),
	}))

	require.NoError(t, svc.Unpair(ctx, "user-1", "phone-1"))

	// A second unpair reports not found rather than silently succeeding
	err := svc.Unpair(ctx, "user-1", "phone-1")
	assert.ErrorIs(t, err, device.ErrNotFound)

	devices, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestListScopedToUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, d := range []struct{ user, dev string }{
		{"user-1", "phone-1"},
		{"user-1", "laptop-1"},
		{"user-2", "phone-9"},
	} {
		require.NoError(t, svc.Pair(ctx, &device.PairedDevice{
			UserID:     d.user,
			DeviceID:   d.dev,
			DeviceType: "mobile",
			DeviceName: d.dev,
			PairedAt:   time.Now(),
		}))
	}

	devices, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestTouchLastActive(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Pair(ctx, &device.PairedDevice{
		UserID:     "user-1",
		DeviceID:   "phone-1",
		DeviceType: "mobile",
		DeviceName: "My Phone",
		PairedAt:   time.Now().Add(-time.Hour),
	}))

	require.NoError(t, svc.TouchLastActive(ctx, "user-1", "phone-1"))

	d, err := repo.Find(ctx, "user-1", "phone-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), d.LastActiveAt, time.Minute)

	err = svc.TouchLastActive(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, device.ErrNotFound)
}
