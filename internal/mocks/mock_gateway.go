package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockPaymentGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockPaymentGateway) CreateSession(ctx context.Context, booking *domain.BookingDraft) (*domain.GatewaySession, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewaySession), args.Error(1)
}
