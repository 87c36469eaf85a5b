package domain

import (
	"context"
	"time"
)

type ReservationState string

const (
	ReservationAvailable    ReservationState = "available"
	ReservationTempHeld     ReservationState = "temp_held"
	ReservationBooked       ReservationState = "booked"
	ReservationAdminBlocked ReservationState = "admin_blocked"
)

// SeatReservation is the authoritative per-(seat, trip) state. At most one
// active reservation exists per pair; the store serializes writers with an
// atomic conditional write keyed by Version.
type SeatReservation struct {
	SeatID    string
	TripID    string
	State     ReservationState
	HolderID  string
	BookingID string
	Version   int64
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// EffectiveState applies lazy expiry: a temp_held reservation whose TTL has
// passed and which was never attached to a booking counts as available even
// before the sweeper physically reverts it.
func (r *SeatReservation) EffectiveState(now time.Time) ReservationState {
	if r == nil || r.State == "" {
		return ReservationAvailable
	}

	if r.State == ReservationTempHeld && r.BookingID == "" && !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now) {
		return ReservationAvailable
	}

	return r.State
}

type HoldResult string

const (
	HoldOk       HoldResult = "ok"
	HoldConflict HoldResult = "conflict"
	HoldBlocked  HoldResult = "blocked"
)

type HoldRegistry interface {
	TryHold(ctx context.Context, seatID, tripID, holderID string, ttl time.Duration) (HoldResult, error)
	ConfirmBooking(ctx context.Context, seatID, tripID, holderID, bookingID string) error
	Release(ctx context.Context, seatID, tripID, holderID string) error
}
