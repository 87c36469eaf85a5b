package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sweeper is the best-effort background pass that physically reverts stale
// temp_held reservations. The read path already treats them as available
// (lazy expiry); the sweep only reclaims storage and emits the change events
// observers need.
type Sweeper struct {
	rdb      redis.UniversalClient
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSweeper(rdb redis.UniversalClient, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		rdb:      rdb,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting hold sweeper", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping hold sweeper", "reason", "context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("stopping hold sweeper", "reason", "stop requested")
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Error("hold sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("reverted stale seat holds", "count", n)
			}
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Sweep runs one pass over every trip that has reservation records. A failure
// on one trip does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	trips, err := s.rdb.SMembers(ctx, activeTripsKey).Result()
	if err != nil {
		return 0, err
	}

	total := 0

	for _, tripID := range trips {
		keys := []string{tripIndexKey(tripID), changeChannel(tripID)}

		n, err := sweepTripScript.Run(ctx, s.rdb, keys,
			s.now().Unix(), tripID, seatKeyPrefix(tripID)).Int()
		if err != nil {
			s.logger.Error("sweep failed for trip", "trip_id", tripID, "error", err)
			continue
		}

		total += n
	}

	return total, nil
}
