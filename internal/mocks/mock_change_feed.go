package mocks

import (
	"context"

	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockChangeFeed struct {
	SubscribeFunc func(ctx context.Context, tripID string) (<-chan domain.SeatChange, func(), error)
}

func (m *MockChangeFeed) Subscribe(ctx context.Context, tripID string) (<-chan domain.SeatChange, func(), error) {
	return m.SubscribeFunc(ctx, tripID)
}
