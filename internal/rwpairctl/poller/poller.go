// Package poller implements the client-side pairing poll loop. A
// session checks a token's status on a fixed schedule until it reaches
// a terminal state, its attempt budget runs out, or it is cancelled.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
)

// Defaults: 60 attempts at 5 second intervals covers the 5 minute
// token TTL
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// Outcome is the terminal state of a poll session
type Outcome string

const (
	// OutcomePaired means the token was redeemed by a secondary device
	OutcomePaired Outcome = "paired"
	// OutcomeExpired means the server reported the token expired or unknown
	OutcomeExpired Outcome = "expired"
	// OutcomeTimeout means the attempt budget ran out without a terminal
	// status from the server
	OutcomeTimeout Outcome = "timeout"
	// OutcomeAborted means the session was cancelled
	OutcomeAborted Outcome = "aborted"
)

// Result is the single terminal notification of a session
type Result struct {
	Outcome Outcome
	// Attempts is how many status checks were performed
	Attempts int
	// Err carries the last transient error when the session timed out
	// with failures, and the cancellation cause when aborted
	Err error
}

// StatusFunc asks the server for a token's current status. Errors are
// treated as transient: they consume an attempt but never terminate a
// session.
type StatusFunc func(ctx context.Context) (v1alpha1.PairingStatus, error)

// Session is a single poll loop for one issued token
type Session struct {
	check       StatusFunc
	interval    time.Duration
	maxAttempts int
	clock       Clock
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithInterval overrides the wait between status checks
func WithInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

// WithMaxAttempts overrides the attempt budget
func WithMaxAttempts(n int) SessionOption {
	return func(s *Session) { s.maxAttempts = n }
}

// WithClock overrides the session clock. Intended for tests.
func WithClock(c Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// NewSession creates a poll session driving the given status check
func NewSession(check StatusFunc, opts ...SessionOption) *Session {
	s := &Session{
		check:       check,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		clock:       SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until a terminal state and returns exactly one Result. Each
// attempt waits one interval first, so the budget of N attempts spans
// N intervals of wall-clock time. Cancellation is observed at the next
// scheduled tick at the latest.
func (s *Session) Run(ctx context.Context) Result {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{Outcome: OutcomeAborted, Attempts: attempt - 1, Err: ctx.Err()}
		case <-s.clock.After(s.interval):
		}

		status, err := s.check(ctx)
		if err != nil {
			// Transient: the attempt is spent but the session goes on
			lastErr = err
			continue
		}

		switch status {
		case v1alpha1.PairingStatusRedeemed:
			return Result{Outcome: OutcomePaired, Attempts: attempt}
		case v1alpha1.PairingStatusExpired, v1alpha1.PairingStatusNotFound:
			return Result{Outcome: OutcomeExpired, Attempts: attempt}
		}
	}

	return Result{Outcome: OutcomeTimeout, Attempts: s.maxAttempts, Err: lastErr}
}

// Manager runs at most one session per (user, device) slot. Starting a
// session for a slot cancels the slot's previous session.
type Manager struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	cancel context.CancelFunc
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{slots: make(map[string]*slot)}
}

func slotKey(userID, deviceID string) string {
	return userID + "/" + deviceID
}

// Start launches a session for the (user, device) slot, cancelling any
// session already running there. The returned channel delivers the
// session's single Result and is then closed.
func (m *Manager) Start(ctx context.Context, userID, deviceID string, session *Session) <-chan Result {
	key := slotKey(userID, deviceID)

	sessionCtx, cancel := context.WithCancel(ctx)
	mine := &slot{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.slots[key]; ok {
		prev.cancel()
	}
	m.slots[key] = mine
	m.mu.Unlock()

	results := make(chan Result, 1)
	go func() {
		defer close(results)
		defer cancel()

		result := session.Run(sessionCtx)

		m.mu.Lock()
		// Only clear the slot if it still belongs to this session
		if m.slots[key] == mine {
			delete(m.slots, key)
		}
		m.mu.Unlock()

		results <- result
	}()

	return results
}

// Stop cancels the running session for a slot, if any
func (m *Manager) Stop(userID, deviceID string) {
	key := slotKey(userID, deviceID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[key]; ok {
		s.cancel()
		delete(m.slots, key)
	}
}

// StopAll cancels every running session
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.slots {
		s.cancel()
		delete(m.slots, key)
	}
}
