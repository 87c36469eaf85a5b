package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) UpdateStatus(
	ctx context.Context,
	gatewaySessionID string,
	status domain.PaymentStatus,
	resolvedBy domain.ResultChannel,
	errMsg string) error {

	args := m.Called(ctx, gatewaySessionID, status, resolvedBy, errMsg)
	return args.Error(0)
}

func (m *MockPaymentRepo) SetTransaction(ctx context.Context, gatewaySessionID, transactionID string) error {
	args := m.Called(ctx, gatewaySessionID, transactionID)
	return args.Error(0)
}
