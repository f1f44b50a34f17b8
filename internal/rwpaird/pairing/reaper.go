package pairing

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper periodically deletes token records past their expiry to bound
// storage growth. Correctness never depends on it: Redeem and Status
// both check wall-clock expiry independently.
type Reaper struct {
	repo     Repository
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReaper creates a reaper sweeping at the given interval
func NewReaper(repo Repository, interval time.Duration, logger zerolog.Logger) *Reaper {
	return &Reaper{
		repo:     repo,
		interval: interval,
		logger:   logger.With().Str("component", "pairing-reaper").Logger(),
		now:      time.Now,
	}
}

// Run sweeps until the context is cancelled
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	deleted, err := r.repo.DeleteExpiredBefore(ctx, r.now())
	if err != nil {
		r.logger.Error().Err(err).Msg("expired token sweep failed")
		return
	}
	if deleted > 0 {
		r.logger.Info().Int("deleted", deleted).Msg("reaped expired pairing tokens")
	}
}
