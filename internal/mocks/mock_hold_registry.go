package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockHoldRegistry struct {
	mock.Mock
	domain.HoldRegistry
}

func (m *MockHoldRegistry) TryHold(ctx context.Context, seatID, tripID, holderID string, ttl time.Duration) (domain.HoldResult, error) {
	args := m.Called(ctx, seatID, tripID, holderID, ttl)
	return args.Get(0).(domain.HoldResult), args.Error(1)
}

func (m *MockHoldRegistry) ConfirmBooking(ctx context.Context, seatID, tripID, holderID, bookingID string) error {
	args := m.Called(ctx, seatID, tripID, holderID, bookingID)
	return args.Error(0)
}

func (m *MockHoldRegistry) Release(ctx context.Context, seatID, tripID, holderID string) error {
	args := m.Called(ctx, seatID, tripID, holderID)
	return args.Error(0)
}

func (m *MockHoldRegistry) Snapshot(ctx context.Context, tripID, viewerID string) ([]domain.SeatAvailability, error) {
	args := m.Called(ctx, tripID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatAvailability), args.Error(1)
}

func (m *MockHoldRegistry) VerifyHolds(ctx context.Context, tripID, holderID string, seatIDs []string) error {
	args := m.Called(ctx, tripID, holderID, seatIDs)
	return args.Error(0)
}
