package mocks

import (
	"context"

	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type MockSeatCatalog struct {
	SeatsByTripFunc       func(ctx context.Context, tripID string) ([]domain.Seat, error)
	SeatsByTripAndIDsFunc func(ctx context.Context, tripID string, seatIDs []string) ([]domain.Seat, error)
	TripByIDFunc          func(ctx context.Context, tripID string) (*domain.Trip, error)
}

func (m *MockSeatCatalog) SeatsByTrip(ctx context.Context, tripID string) ([]domain.Seat, error) {
	return m.SeatsByTripFunc(ctx, tripID)
}

func (m *MockSeatCatalog) SeatsByTripAndIDs(
	ctx context.Context,
	tripID string,
	seatIDs []string) ([]domain.Seat, error) {

	return m.SeatsByTripAndIDsFunc(ctx, tripID, seatIDs)
}

func (m *MockSeatCatalog) TripByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	return m.TripByIDFunc(ctx, tripID)
}
