package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tersane/ferry-reservation-system/internal/booking"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBookingConfirmed(ctx context.Context, event booking.ConfirmedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
