package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockFinalizer struct {
	mock.Mock
	domain.BookingFinalizer
}

func (m *MockFinalizer) Finalize(ctx context.Context, bookingID string) (domain.FinalizeResult, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(domain.FinalizeResult), args.Error(1)
}

func (m *MockFinalizer) Cancel(ctx context.Context, bookingID string, reason domain.CancelReason) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}
