package idempotency

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically purges idempotency records older than the
// retention horizon. Deletes run by age predicate and are safe against
// concurrent read/write traffic; a failed run never stops later runs.
type Sweeper struct {
	store    Store
	horizon  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(store Store, horizon, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		horizon:  horizon,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every interval tick until ctx
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("idempotency sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("horizon", s.horizon),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("idempotency sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes all records older than the retention horizon and logs the
// count removed. Errors are logged, not fatal.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.horizon)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("idempotency sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("idempotency sweep completed",
		zap.Int64("removed", removed),
		zap.Time("cutoff", cutoff),
	)
}
