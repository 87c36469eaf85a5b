package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveAvailability(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	standardSeat := Seat{ID: "12A", Type: SeatTypeStandard}

	tests := []struct {
		name             string
		seat             Seat
		resv             *SeatReservation
		viewerID         string
		policy           SeatPolicy
		wantState        AvailabilityState
		wantAvailable    bool
		wantHeldByViewer bool
	}{
		{
			name:          "no reservation means available",
			seat:          standardSeat,
			resv:          nil,
			viewerID:      "viewer-1",
			wantState:     SeatAvailable,
			wantAvailable: true,
		},
		{
			name:      "admin blocked wins over everything",
			seat:      standardSeat,
			resv:      &SeatReservation{State: ReservationAdminBlocked, HolderID: "viewer-1"},
			viewerID:  "viewer-1",
			wantState: SeatBlocked,
		},
		{
			name:      "booked seat is not available to anyone",
			seat:      standardSeat,
			resv:      &SeatReservation{State: ReservationBooked, BookingID: "b-1"},
			viewerID:  "viewer-1",
			wantState: SeatBooked,
		},
		{
			name:      "seat held by another viewer is unavailable",
			seat:      standardSeat,
			resv:      &SeatReservation{State: ReservationTempHeld, HolderID: "viewer-2", ExpiresAt: now.Add(time.Minute)},
			viewerID:  "viewer-1",
			wantState: SeatHeld,
		},
		{
			name:             "seat held by the viewer stays selectable for them",
			seat:             standardSeat,
			resv:             &SeatReservation{State: ReservationTempHeld, HolderID: "viewer-1", ExpiresAt: now.Add(time.Minute)},
			viewerID:         "viewer-1",
			wantState:        SeatHeld,
			wantAvailable:    true,
			wantHeldByViewer: true,
		},
		{
			name:          "expired hold counts as available before the sweeper runs",
			seat:          standardSeat,
			resv:          &SeatReservation{State: ReservationTempHeld, HolderID: "viewer-2", ExpiresAt: now.Add(-time.Second)},
			viewerID:      "viewer-1",
			wantState:     SeatAvailable,
			wantAvailable: true,
		},
		{
			name:      "expired hold attached to a booking is not reclaimed",
			seat:      standardSeat,
			resv:      &SeatReservation{State: ReservationTempHeld, HolderID: "viewer-2", BookingID: "b-1", ExpiresAt: now.Add(-time.Second)},
			viewerID:  "viewer-1",
			wantState: SeatHeld,
		},
		{
			name:      "crew seats are always blocked",
			seat:      Seat{ID: "C1", Type: SeatTypeCrew},
			viewerID:  "viewer-1",
			wantState: SeatBlocked,
		},
		{
			name:      "accessibility seats are blocked by default",
			seat:      Seat{ID: "D1", Type: SeatTypeDisabled},
			viewerID:  "viewer-1",
			wantState: SeatBlocked,
		},
		{
			name:          "accessibility seats open up when the policy allows them",
			seat:          Seat{ID: "D1", Type: SeatTypeDisabled},
			viewerID:      "viewer-1",
			policy:        SeatPolicy{AllowDisabledSeats: true},
			wantState:     SeatAvailable,
			wantAvailable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAvailability(tt.seat, tt.resv, tt.viewerID, now, tt.policy)

			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantAvailable, got.Available)
			assert.Equal(t, tt.wantHeldByViewer, got.HeldByViewer)
		})
	}
}

func TestEffectiveState(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil reservation is available", func(t *testing.T) {
		var resv *SeatReservation
		assert.Equal(t, ReservationAvailable, resv.EffectiveState(now))
	})

	t.Run("hold expiring exactly now is already expired", func(t *testing.T) {
		resv := &SeatReservation{State: ReservationTempHeld, ExpiresAt: now}
		assert.Equal(t, ReservationAvailable, resv.EffectiveState(now))
	})

	t.Run("unexpired hold keeps its state", func(t *testing.T) {
		resv := &SeatReservation{State: ReservationTempHeld, ExpiresAt: now.Add(time.Millisecond)}
		assert.Equal(t, ReservationTempHeld, resv.EffectiveState(now))
	})

	t.Run("booked state ignores the expiry field", func(t *testing.T) {
		resv := &SeatReservation{State: ReservationBooked, ExpiresAt: now.Add(-time.Hour)}
		assert.Equal(t, ReservationBooked, resv.EffectiveState(now))
	})
}
