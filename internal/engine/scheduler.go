package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
)

// Accruer is the interest check a Scheduler drives.
type Accruer interface {
	CheckAndAccrueInterest(ctx context.Context, now time.Time) (*AccrualResult, error)
}

// Scheduler calls CheckAndAccrueInterest on a fixed interval.
type Scheduler struct {
	accruer  Accruer
	now      func() time.Time
	interval time.Duration
}

// NewScheduler creates a scheduler that checks every interval.
func NewScheduler(accruer Accruer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		accruer:  accruer,
		interval: interval,
		now:      time.Now,
	}
}

// Run checks once immediately and then on every tick until ctx is done.
// Failed checks are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("Starting interest scheduler", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Interest scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	result, err := s.accruer.CheckAndAccrueInterest(ctx, s.now())
	if err != nil {
		common.LogError(err, "Interest check failed", common.Fields{"interval": s.interval.String()})
		return
	}
	if len(result.Posted) > 0 {
		slog.Info("Interest check posted transactions", "count", len(result.Posted))
	}
}
