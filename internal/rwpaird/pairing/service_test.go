package pairing_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	werrors "github.com/restwell/restwell-pairing/internal/rwpaird/errors"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
)

// memTokenRepo is an in-memory Repository with the same atomicity
// guarantees the postgres implementation provides
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*pairing.Token
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*pairing.Token)}
}

func (r *memTokenRepo) CreatePending(_ context.Context, t *pairing.Token) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, prior := range r.tokens {
		if prior.UserID == t.UserID && prior.DeviceID == t.DeviceID && prior.Status == pairing.StatusPending {
			prior.Status = pairing.StatusExpired
			prior.ExpiresAt = t.IssuedAt
			count++
		}
	}
	cp := *t
	r.tokens[t.Token] = &cp
	return count, nil
}

// pendingCount reports the live pending tokens for a (user, device) slot
func (r *memTokenRepo) pendingCount(userID, deviceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.DeviceID == deviceID && t.Status == pairing.StatusPending {
			count++
		}
	}
	return count
}

func (r *memTokenRepo) FindByToken(_ context.Context, token string) (*pairing.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, pairing.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) Redeem(_ context.Context, token, fingerprint string, now time.Time) (*pairing.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, pairing.ErrTokenNotFound
	}
	switch {
	case t.Status == pairing.StatusRedeemed:
		// Redemption replays by the winning device are idempotent
		if t.RedeemedBy != nil && *t.RedeemedBy == fingerprint {
			cp := *t
			return &cp, nil
		}
		return nil, pairing.ErrAlreadyRedeemed
	case t.Status == pairing.StatusExpired || now.After(t.ExpiresAt):
		return nil, pairing.ErrTokenExpired
	}

	t.Status = pairing.StatusRedeemed
	t.RedeemedAt = &now
	t.RedeemedBy = &fingerprint
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key, t := range r.tokens {
		if t.Status != pairing.StatusRedeemed && t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

// memDeviceRepo is an in-memory device registry keyed by (user, device)
type memDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*device.PairedDevice
	// failures makes the next N upserts fail, for retry tests
	failures int
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{devices: make(map[string]*device.PairedDevice)}
}

func key(userID, deviceID string) string { return userID + "/" + deviceID }

func (r *memDeviceRepo) Upsert(_ context.Context, d *device.PairedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("registry unavailable")
	}
	cp := *d
	r.devices[key(d.UserID, d.DeviceID)] = &cp
	return nil
}

func (r *memDeviceRepo) Find(_ context.Context, userID, deviceID string) (*device.PairedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[key(userID, deviceID)]
	if !ok {
		return nil, device.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDeviceRepo) List(_ context.Context, userID string) ([]device.PairedDevice, error) {
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

func (r *memDeviceRepo) Delete(_ context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[key(userID, deviceID)]; !ok {
		return device.ErrNotFound
	}
	delete(r.devices, key(userID, deviceID))
	return nil
}

func (r *memDeviceRepo) TouchLastActive(_ context.Context, userID, deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[key(userID, deviceID)]
	if !ok {
		return device.ErrNotFound
	}
	d.LastActiveAt = at
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(now func() time.Time) (*pairing.DefaultService, *memTokenRepo, *memDeviceRepo) {
	tokens := newMemTokenRepo()
	devices := newMemDeviceRepo()
	deviceSvc := device.NewService(devices, testLogger())
	svc := pairing.NewService(tokens, deviceSvc, testLogger()).WithClock(now)
	return svc, tokens, devices
}

func TestIssueValidation(t *testing.T) {
	svc, _, _ := newTestService(time.Now)
	ctx := context.Background()

	cases := []struct {
		name       string
		userID     string
		deviceID   string
		deviceType pairing.DeviceType
		deviceName string
	}{
		{"empty user", "", "d", pairing.DeviceTypeLaptop, "n"},
		{"empty device id", "u", "", pairing.DeviceTypeLaptop, "n"},
		{"empty device name", "u", "d", pairing.DeviceTypeLaptop, ""},
		{"bad device type", "u", "d", "fridge", "n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Issue(ctx, tc.userID, tc.deviceID, tc.deviceType, tc.deviceName)
			assert.ErrorIs(t, err, pairing.ErrInvalidRequest)
		})
	}
}

func TestIssueAndRoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _, devices := newTestService(func() time.Time { return base })
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)
	assert.False(t, issued.Superseded)
	assert.Equal(t, base.Add(5*time.Minute), issued.Token.ExpiresAt)
	assert.Equal(t, pairing.StatusPending, issued.Token.Status)

	status, err := svc.Status(ctx, issued.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultPending, status)

	result, err := svc.Redeem(ctx, issued.Token.Token, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "phone-1", result.DeviceID)

	status, err = svc.Status(ctx, issued.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultRedeemed, status)

	// The paired device shows up in the registry with matching identity
	d, err := devices.Find(ctx, "user-1", "phone-1")
	require.NoError(t, err)
	assert.Equal(t, "mobile", d.DeviceType)
	assert.Equal(t, "My Phone", d.DeviceName)
	assert.Equal(t, device.StateConnected, d.ConnectionState)
}

func TestReissueSupersedesPendingToken(t *testing.T) {
	svc, _, _ := newTestService(time.Now)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	second, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)
	assert.True(t, second.Superseded)

	// The first token is dead immediately: non-redeemable and reported expired
	status, err := svc.Status(ctx, first.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultExpired, status)

	_, err = svc.Redeem(ctx, first.Token.Token, "fp-1")
	assert.ErrorIs(t, err, pairing.ErrTokenExpired)

	// The second token still works
	_, err = svc.Redeem(ctx, second.Token.Token, "fp-1")
	assert.NoError(t, err)
}

func TestReissueForDifferentDeviceDoesNotSupersede(t *testing.T) {
	svc, _, _ := newTestService(time.Now)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	_, err = svc.Issue(ctx, "user-1", "tablet-1", pairing.DeviceTypeMobile, "My Tablet")
	require.NoError(t, err)

	status, err := svc.Status(ctx, first.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultPending, status)
}

func TestRedeemExpiryBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc, _, _ := newTestService(func() time.Time { return now })
	ctx := context.Background()

	// Redemption one second before expiry succeeds
	issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	now = base.Add(pairing.TokenTTL - time.Second)
	_, err = svc.Redeem(ctx, issued.Token.Token, "fp-1")
	assert.NoError(t, err)

	// The token is live up to and including the expiry instant itself
	now = base
	issuedAt, err := svc.Issue(ctx, "user-1", "tablet-1", pairing.DeviceTypeMobile, "My Tablet")
	require.NoError(t, err)

	now = base.Add(pairing.TokenTTL)
	_, err = svc.Redeem(ctx, issuedAt.Token.Token, "fp-1")
	assert.NoError(t, err)

	// Redemption one second after expiry fails even though no reaping ran
	now = base
	issued2, err := svc.Issue(ctx, "user-1", "phone-2", pairing.DeviceTypeMobile, "Other Phone")
	require.NoError(t, err)

	now = base.Add(pairing.TokenTTL + time.Second)
	_, err = svc.Redeem(ctx, issued2.Token.Token, "fp-1")
	assert.ErrorIs(t, err, pairing.ErrTokenExpired)

	status, err := svc.Status(ctx, issued2.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultExpired, status)
}

func TestRedeemUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(time.Now)

	_, err := svc.Redeem(context.Background(), "no-such-token", "fp-1")
	assert.ErrorIs(t, err, pairing.ErrTokenNotFound)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(time.Now)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	const attempts = 100
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	// Distinct fingerprints so no call counts as a replay of the winner
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, issued.Token.Token, fmt.Sprintf("fp-racer-%d", i))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, pairing.ErrAlreadyRedeemed) {
			losses++
		} else {
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, losses)
}

func TestConcurrentIssueLeavesSingleLivePendingToken(t *testing.T) {
	svc, tokens, _ := newTestService(time.Now)
	ctx := context.Background()

	const issuers = 25
	var wg sync.WaitGroup
	issuedTokens := make(chan string, issuers)

	for i := 0; i < issuers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
			if err == nil {
				issuedTokens <- issued.Token.Token
			}
		}()
	}
	wg.Wait()
	close(issuedTokens)

	// However the issuances interleave, exactly one live pending token
	// remains for the slot, and only that one is redeemable.
	assert.Equal(t, 1, tokens.pendingCount("user-1", "phone-1"))

	wins := 0
	i := 0
	for tok := range issuedTokens {
		i++
		if _, err := svc.Redeem(ctx, tok, fmt.Sprintf("fp-%d", i)); err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRedeemReplayAfterRegistryOutage(t *testing.T) {
	svc, _, devices := newTestService(time.Now)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	// The registry stays down for every attempt of the first redemption
	devices.failures = 3

	_, err = svc.Redeem(ctx, issued.Token.Token, "fp-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, werrors.ErrTransient)

	// The redemption committed but the device never made it into the
	// registry
	status, err := svc.Status(ctx, issued.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultRedeemed, status)

	_, err = devices.Find(ctx, "user-1", "phone-1")
	assert.ErrorIs(t, err, device.ErrNotFound)

	// The same device retries once the registry is back and completes
	// the registration
	result, err := svc.Redeem(ctx, issued.Token.Token, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.UserID)

	d, err := devices.Find(ctx, "user-1", "phone-1")
	require.NoError(t, err)
	assert.Equal(t, device.StateConnected, d.ConnectionState)

	// Any other device is still rejected
	_, err = svc.Redeem(ctx, issued.Token.Token, "fp-2")
	assert.ErrorIs(t, err, pairing.ErrAlreadyRedeemed)
}

func TestRedeemRetriesRegistryUpsert(t *testing.T) {
	svc, _, devices := newTestService(time.Now)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1", "phone-1", pairing.DeviceTypeMobile, "My Phone")
	require.NoError(t, err)

	// Two transient registry failures are absorbed by the retry loop
	devices.failures = 2

	_, err = svc.Redeem(ctx, issued.Token.Token, "fp-1")
	require.NoError(t, err)

	_, err = devices.Find(ctx, "user-1", "phone-1")
	assert.NoError(t, err)
}

func TestStatusUnknownTokenIsNotFoundNotError(t *testing.T) {
	svc, _, _ := newTestService(time.Now)

	status, err := svc.Status(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusResultNotFound, status)
}
