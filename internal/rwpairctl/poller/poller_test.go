package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restwell/restwell-pairing/api/types/v1alpha1"
)

// fakeClock hands out tick channels and lets the test fire them one at
// a time, so sessions advance without wall-clock waits.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []chan time.Time
	waiting chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		waiting: make(chan struct{}, 1024),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.pending = append(c.pending, ch)
	c.waiting <- struct{}{}
	return ch
}

// tick waits for the session to block in After, then fires the oldest
// pending timer
func (c *fakeClock) tick(t *testing.T) {
	t.Helper()
	select {
	case <-c.waiting:
	case <-time.After(5 * time.Second):
		t.Fatal("session never armed a timer")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.pending)
	ch := c.pending[0]
	c.pending = c.pending[1:]
	c.now = c.now.Add(DefaultInterval)
	ch <- c.now
}

// timerArmed reports whether the session is blocked waiting for a tick
func (c *fakeClock) timerArmed() bool {
	select {
	case <-c.waiting:
		c.waiting <- struct{}{}
		return true
	default:
		return false
	}
}

// scriptedStatus returns each queued answer in order, then repeats the
// last one
type scriptedStatus struct {
	mu      sync.Mutex
	answers []answer
}

type answer struct {
	status v1alpha1.PairingStatus
	err    error
}

func (s *scriptedStatus) next(context.Context) (v1alpha1.PairingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.answers[0]
	if len(s.answers) > 1 {
		s.answers = s.answers[1:]
	}
	return a.status, a.err
}

func runSession(s *Session) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		results <- s.Run(context.Background())
	}()
	return results
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate")
		return Result{}
	}
}

func TestSessionPaired(t *testing.T) {
	clock := newFakeClock()
	script := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusPending},
		{status: v1alpha1.PairingStatusPending},
		{status: v1alpha1.PairingStatusRedeemed},
	}}
	session := NewSession(script.next, WithClock(clock))

	results := runSession(session)
	clock.tick(t)
	clock.tick(t)
	clock.tick(t)

	r := waitResult(t, results)
	assert.Equal(t, OutcomePaired, r.Outcome)
	assert.Equal(t, 3, r.Attempts)
	assert.NoError(t, r.Err)
}

func TestSessionTransientErrorsConsumeAttemptsWithoutTerminating(t *testing.T) {
	clock := newFakeClock()
	script := &scriptedStatus{answers: []answer{
		{err: errors.New("connection refused")},
		{err: errors.New("HTTP 503")},
		{status: v1alpha1.PairingStatusRedeemed},
	}}
	session := NewSession(script.next, WithClock(clock))

	results := runSession(session)
	clock.tick(t)
	clock.tick(t)
	clock.tick(t)

	r := waitResult(t, results)
	assert.Equal(t, OutcomePaired, r.Outcome)
	assert.Equal(t, 3, r.Attempts)
}

func TestSessionServerExpired(t *testing.T) {
	for _, status := range []v1alpha1.PairingStatus{
		v1alpha1.PairingStatusExpired,
		v1alpha1.PairingStatusNotFound,
	} {
		t.Run(string(status), func(t *testing.T) {
			clock := newFakeClock()
			script := &scriptedStatus{answers: []answer{{status: status}}}
			session := NewSession(script.next, WithClock(clock))

			results := runSession(session)
			clock.tick(t)

			r := waitResult(t, results)
			assert.Equal(t, OutcomeExpired, r.Outcome)
			assert.Equal(t, 1, r.Attempts)
		})
	}
}

func TestSessionTimeoutAfterBudgetExhausted(t *testing.T) {
	clock := newFakeClock()
	script := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusPending},
	}}
	session := NewSession(script.next, WithClock(clock), WithMaxAttempts(10))

	results := runSession(session)
	for i := 0; i < 10; i++ {
		clock.tick(t)
	}

	r := waitResult(t, results)
	assert.Equal(t, OutcomeTimeout, r.Outcome)
	assert.Equal(t, 10, r.Attempts)

	// No further ticks are scheduled after the terminal result
	assert.False(t, clock.timerArmed())
}

func TestSessionTimeoutCarriesLastTransientError(t *testing.T) {
	clock := newFakeClock()
	lastErr := errors.New("HTTP 502")
	script := &scriptedStatus{answers: []answer{{err: lastErr}}}
	session := NewSession(script.next, WithClock(clock), WithMaxAttempts(3))

	results := runSession(session)
	for i := 0; i < 3; i++ {
		clock.tick(t)
	}

	r := waitResult(t, results)
	assert.Equal(t, OutcomeTimeout, r.Outcome)
	assert.ErrorIs(t, r.Err, lastErr)
}

func TestSessionCancellationObservedAtNextTick(t *testing.T) {
	clock := newFakeClock()
	script := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusPending},
	}}
	session := NewSession(script.next, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 1)
	go func() {
		results <- session.Run(ctx)
	}()

	clock.tick(t)
	cancel()

	r := waitResult(t, results)
	assert.Equal(t, OutcomeAborted, r.Outcome)
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.Equal(t, 1, r.Attempts)
}

func TestManagerDeliversExactlyOneResult(t *testing.T) {
	clock := newFakeClock()
	script := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusRedeemed},
	}}
	session := NewSession(script.next, WithClock(clock))

	m := NewManager()
	results := m.Start(context.Background(), "user-1", "phone-1", session)
	clock.tick(t)

	r := waitResult(t, results)
	assert.Equal(t, OutcomePaired, r.Outcome)

	// The channel closes after the single delivery
	_, open := <-results
	assert.False(t, open)
}

func TestManagerNewSessionCancelsPrevious(t *testing.T) {
	pending := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusPending},
	}}

	m := NewManager()
	first := m.Start(context.Background(), "user-1", "phone-1",
		NewSession(pending.next, WithClock(newFakeClock())))

	// A fresh session for the same slot evicts the first one
	redeemed := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusRedeemed},
	}}
	secondClock := newFakeClock()
	second := m.Start(context.Background(), "user-1", "phone-1",
		NewSession(redeemed.next, WithClock(secondClock)))

	r1 := waitResult(t, first)
	assert.Equal(t, OutcomeAborted, r1.Outcome)

	secondClock.tick(t)
	r2 := waitResult(t, second)
	assert.Equal(t, OutcomePaired, r2.Outcome)
}

func TestManagerSessionsForDifferentSlotsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	pending := &scriptedStatus{answers: []answer{
		{status: v1alpha1.PairingStatusPending},
	}}

	m := NewManager()
	first := m.Start(context.Background(), "user-1", "phone-1",
		NewSession(pending.next, WithClock(clock)))
	_ = m.Start(context.Background(), "user-1", "laptop-1",
		NewSession(pending.next, WithClock(clock)))

	// The first slot's session is still running
	select {
	case r := <-first:
		t.Fatalf("unexpected termination: %+v", r)
	default:
	}

	m.StopAll()
	r := waitResult(t, first)
	assert.Equal(t, OutcomeAborted, r.Outcome)
}
