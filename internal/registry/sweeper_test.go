package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tersane/ferry-reservation-system/internal/mocks"
)

func TestSweep(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sweeps every active trip", func(t *testing.T) {
		redisClient := new(mocks.MockRedisClient)
		sweeper := NewSweeper(redisClient, logger, time.Minute)

		redisClient.On("SMembers", mock.Anything, activeTripsKey).
			Return(redis.NewStringSliceResult([]string{"trip-1", "trip-2"}, nil)).Once()

		redisClient.On("EvalSha",
			mock.Anything, mock.Anything, []string{tripIndexKey("trip-1"), changeChannel("trip-1")},
			mock.Anything, mock.Anything, mock.Anything).
			Return(redis.NewCmdResult(int64(3), nil)).Once()
		redisClient.On("EvalSha",
			mock.Anything, mock.Anything, []string{tripIndexKey("trip-2"), changeChannel("trip-2")},
			mock.Anything, mock.Anything, mock.Anything).
			Return(redis.NewCmdResult(int64(0), nil)).Once()

		n, err := sweeper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 3, n)
		redisClient.AssertExpectations(t)
	})

	t.Run("a failing trip does not stop the others", func(t *testing.T) {
		redisClient := new(mocks.MockRedisClient)
		sweeper := NewSweeper(redisClient, logger, time.Minute)

		redisClient.On("SMembers", mock.Anything, activeTripsKey).
			Return(redis.NewStringSliceResult([]string{"trip-1", "trip-2"}, nil)).Once()

		redisClient.On("EvalSha",
			mock.Anything, mock.Anything, []string{tripIndexKey("trip-1"), changeChannel("trip-1")},
			mock.Anything, mock.Anything, mock.Anything).
			Return(redis.NewCmdResult(nil, mocks.MockRedisError{Msg: "redis error"})).Once()
		redisClient.On("EvalSha",
			mock.Anything, mock.Anything, []string{tripIndexKey("trip-2"), changeChannel("trip-2")},
			mock.Anything, mock.Anything, mock.Anything).
			Return(redis.NewCmdResult(int64(2), nil)).Once()

		n, err := sweeper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		redisClient.AssertExpectations(t)
	})

	t.Run("store failure aborts the pass", func(t *testing.T) {
		redisClient := new(mocks.MockRedisClient)
		sweeper := NewSweeper(redisClient, logger, time.Minute)

		redisClient.On("SMembers", mock.Anything, activeTripsKey).
			Return(redis.NewStringSliceResult(nil, mocks.MockRedisError{Msg: "redis error"})).Once()

		_, err := sweeper.Sweep(context.Background())

		assert.Error(t, err)
	})
}
