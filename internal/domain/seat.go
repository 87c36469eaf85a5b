package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SeatType string

const (
	SeatTypeStandard SeatType = "standard"
	SeatTypePremium  SeatType = "premium"
	SeatTypeCrew     SeatType = "crew"
	SeatTypeDisabled SeatType = "disabled"
)

type Seat struct {
	ID              string
	VesselID        string
	SeatNumber      string
	RowNumber       int
	PosX            int
	PosY            int
	Type            SeatType
	IsWindow        bool
	IsAisle         bool
	PriceMultiplier decimal.Decimal
}

// SeatPolicy holds trip-independent seat selection rules.
type SeatPolicy struct {
	AllowDisabledSeats bool
}

type AvailabilityState string

const (
	SeatAvailable AvailabilityState = "available"
	SeatHeld      AvailabilityState = "temp_held"
	SeatBooked    AvailabilityState = "booked"
	SeatBlocked   AvailabilityState = "admin_blocked"
)

type SeatAvailability struct {
	SeatID          string
	SeatNumber      string
	RowNumber       int
	Type            SeatType
	IsWindow        bool
	IsAisle         bool
	PriceMultiplier decimal.Decimal
	State           AvailabilityState
	Available       bool
	HeldByViewer    bool
	HolderID        string
}

// ResolveAvailability computes the availability of a seat as seen by viewerID.
// Precedence, highest first: admin_blocked > booked > unexpired temp_held by
// another holder > available. Crew seats are never sellable; disabled seats
// behave as blocked unless the policy allows selecting them.
func ResolveAvailability(
	seat Seat,
	resv *SeatReservation,
	viewerID string,
	now time.Time,
	policy SeatPolicy) SeatAvailability {

	sa := SeatAvailability{
		SeatID:          seat.ID,
		SeatNumber:      seat.SeatNumber,
		RowNumber:       seat.RowNumber,
		Type:            seat.Type,
		IsWindow:        seat.IsWindow,
		IsAisle:         seat.IsAisle,
		PriceMultiplier: seat.PriceMultiplier,
	}

	if seat.Type == SeatTypeCrew || (seat.Type == SeatTypeDisabled && !policy.AllowDisabledSeats) {
		sa.State = SeatBlocked
		return sa
	}

	switch resv.EffectiveState(now) {
	case ReservationAdminBlocked:
		sa.State = SeatBlocked
	case ReservationBooked:
		sa.State = SeatBooked
	case ReservationTempHeld:
		sa.State = SeatHeld
		sa.HolderID = resv.HolderID
		sa.HeldByViewer = resv.HolderID == viewerID
		sa.Available = sa.HeldByViewer
	default:
		sa.State = SeatAvailable
		sa.Available = true
	}

	return sa
}

type SeatCatalog interface {
	SeatsByTrip(ctx context.Context, tripID string) ([]Seat, error)
	SeatsByTripAndIDs(ctx context.Context, tripID string, seatIDs []string) ([]Seat, error)
	TripByID(ctx context.Context, tripID string) (*Trip, error)
}
