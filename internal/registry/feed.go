package registry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// RedisChangeFeed exposes the per-trip change events the registry scripts
// publish. Delivery is at-least-once from the consumer's point of view;
// consumers dedupe by version.
type RedisChangeFeed struct {
	rdb    redis.UniversalClient
	logger *slog.Logger
}

func NewChangeFeed(rdb redis.UniversalClient, logger *slog.Logger) *RedisChangeFeed {
	return &RedisChangeFeed{
		rdb:    rdb,
		logger: logger,
	}
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, tripID string) (<-chan domain.SeatChange, func(), error) {
	sub := f.rdb.Subscribe(ctx, changeChannel(tripID))

	// Force the subscription onto the wire before reporting success.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.SeatChange, 64)

	go func() {
		defer close(out)

		for msg := range sub.Channel() {
			var change domain.SeatChange

			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.logger.Warn("dropping malformed seat change event", "trip_id", tripID, "error", err)
				continue
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = sub.Close() }

	return out, stop, nil
}
