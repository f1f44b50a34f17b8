// Package testing provides shared helpers for HTTP handler tests
package testing

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	pairinghttp "github.com/restwell/restwell-pairing/internal/rwpaird/http"
	"github.com/restwell/restwell-pairing/internal/rwpaird/http/testing/mocks"
	"github.com/restwell/restwell-pairing/internal/rwpaird/ratelimit"
)

// TestHandler provides access to handler and mocks for testing
type TestHandler struct {
	Handler   *pairinghttp.Handler
	Pairing   *mocks.PairingService
	Devices   *mocks.DeviceService
	RateLimit *mocks.RateLimitService
	logger    *slog.Logger
	t         *testing.T
}

// NewTestHandler creates a new handler with mock services for testing
func NewTestHandler(t *testing.T) *TestHandler {
	mockPairing := &mocks.PairingService{}
	mockDevices := &mocks.DeviceService{}
	mockRateLimit := &mocks.RateLimitService{}

	// Create logger that writes to stdout for test visibility
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	handler := pairinghttp.NewHandler(mockPairing, mockDevices, mockRateLimit, logger)

	return &TestHandler{
		Handler:   handler,
		Pairing:   mockPairing,
		Devices:   mockDevices,
		RateLimit: mockRateLimit,
		logger:    logger,
		t:         t,
	}
}

// CleanupTest verifies all mock expectations
func (th *TestHandler) CleanupTest() {
	th.Pairing.AssertExpectations(th.t)
	th.Devices.AssertExpectations(th.t)
}

// MockRequest creates a test request with proper headers
func (th *TestHandler) MockRequest(method, target string, body interface{}) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
		req, err = http.NewRequest(method, target, &buf)
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Real-IP", "192.0.2.1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// SetupRateLimitBypass configures rate limit mocks to allow all requests
func (th *TestHandler) SetupRateLimitBypass() {
	limit := ratelimit.Limit{
		Rate:      100,
		Period:    time.Minute,
		BurstSize: 10,
	}

	limitTypes := []string{
		ratelimit.TypeTokenIssue,
		ratelimit.TypeTokenRedeem,
		ratelimit.TypeStatusPoll,
		ratelimit.TypeAPIRequest,
	}
	for _, limitType := range limitTypes {
		th.RateLimit.On("GetLimit", limitType).Return(limit)
	}

	th.RateLimit.On("Allow", mock.Anything, mock.MatchedBy(func(key ratelimit.LimitKey) bool {
		return key.Type != ""
	})).Return(nil)
}
