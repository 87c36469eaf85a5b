// Package registry is the authoritative state and conflict arbiter for seat
// holds. Arbitration is per seat: concurrent attempts on the same seat are
// serialized by the backing store's atomic scripts, attempts on different
// seats share no lock.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

const activeTripsKey = "trips:active"

func seatKey(tripID, seatID string) string {
	return fmt.Sprintf("seat_resv:%s:%s", tripID, seatID)
}

func seatKeyPrefix(tripID string) string {
	return fmt.Sprintf("seat_resv:%s:", tripID)
}

func tripIndexKey(tripID string) string {
	return fmt.Sprintf("seat_resv_index:%s", tripID)
}

func changeChannel(tripID string) string {
	return fmt.Sprintf("seat_changes:%s", tripID)
}

type Registry struct {
	rdb     redis.UniversalClient
	catalog domain.SeatCatalog
	policy  domain.SeatPolicy
	logger  *slog.Logger
	now     func() time.Time
}

func New(rdb redis.UniversalClient, catalog domain.SeatCatalog, policy domain.SeatPolicy, logger *slog.Logger) *Registry {
	return &Registry{
		rdb:     rdb,
		catalog: catalog,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// TryHold attempts an exclusive time-limited claim on one seat. It returns
// HoldConflict when another holder has an unexpired claim or the seat is
// booked, and HoldBlocked when the seat is not selectable at all. It never
// blocks on a competing caller.
func (r *Registry) TryHold(ctx context.Context, seatID, tripID, holderID string, ttl time.Duration) (domain.HoldResult, error) {
	seat, err := r.seat(ctx, tripID, seatID)
	if err != nil {
		return "", err
	}

	if seat.Type == domain.SeatTypeCrew || (seat.Type == domain.SeatTypeDisabled && !r.policy.AllowDisabledSeats) {
		return domain.HoldBlocked, nil
	}

	keys := []string{seatKey(tripID, seatID), tripIndexKey(tripID), changeChannel(tripID), activeTripsKey}
	res, err := tryHoldScript.Run(ctx, r.rdb, keys,
		holderID, int(ttl.Seconds()), r.now().Unix(), seatID, tripID).Text()
	if err != nil {
		return "", fmt.Errorf("try hold script: %w", err)
	}

	switch res {
	case "OK":
		return domain.HoldOk, nil
	case "CONFLICT":
		return domain.HoldConflict, nil
	case "BLOCKED":
		return domain.HoldBlocked, nil
	default:
		return "", fmt.Errorf("try hold script returned unexpected result %q", res)
	}
}

// ConfirmBooking transitions the caller's temp_held reservation to booked and
// detaches it from TTL expiry.
func (r *Registry) ConfirmBooking(ctx context.Context, seatID, tripID, holderID, bookingID string) error {
	keys := []string{seatKey(tripID, seatID), changeChannel(tripID)}
	res, err := confirmBookingScript.Run(ctx, r.rdb, keys,
		holderID, bookingID, r.now().Unix(), seatID, tripID).Text()
	if err != nil {
		return fmt.Errorf("confirm booking script: %w", err)
	}

	switch res {
	case "OK":
		return nil
	case "EXPIRED":
		return domain.ErrReservationExpired
	default:
		return domain.ErrNotHeldByCaller
	}
}

// Release reverts the caller's temp_held reservation to available. Releasing
// a seat the caller no longer holds is a no-op, so it is safe to call from
// every compensation path.
func (r *Registry) Release(ctx context.Context, seatID, tripID, holderID string) error {
	keys := []string{seatKey(tripID, seatID), changeChannel(tripID)}
	_, err := releaseHoldScript.Run(ctx, r.rdb, keys,
		holderID, r.now().Unix(), seatID, tripID).Text()
	if err != nil {
		return fmt.Errorf("release hold script: %w", err)
	}

	return nil
}

// SetBlocked force-sets or clears the admin_blocked state on a seat,
// discarding any hold on it.
func (r *Registry) SetBlocked(ctx context.Context, seatID, tripID string, blocked bool) error {
	arg := "0"
	if blocked {
		arg = "1"
	}

	keys := []string{seatKey(tripID, seatID), tripIndexKey(tripID), changeChannel(tripID), activeTripsKey}
	_, err := setBlockedScript.Run(ctx, r.rdb, keys, arg, r.now().Unix(), seatID, tripID).Text()
	if err != nil {
		return fmt.Errorf("set blocked script: %w", err)
	}

	return nil
}

// Snapshot computes the current availability of every seat on a trip as seen
// by viewerID. Seats without a reservation record are available; expired
// holds count as available even before the sweeper reverts them.
func (r *Registry) Snapshot(ctx context.Context, tripID, viewerID string) ([]domain.SeatAvailability, error) {
	seats, err := r.catalog.SeatsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	reservations, err := r.tripReservations(ctx, tripID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	snapshot := make([]domain.SeatAvailability, len(seats))

	for i, seat := range seats {
		snapshot[i] = domain.ResolveAvailability(seat, reservations[seat.ID], viewerID, now, r.policy)
	}

	return snapshot, nil
}

// VerifyHolds checks that every given seat is currently temp_held by
// holderID. It is used before pricing a booking draft so a draft can never
// be built on top of someone else's holds.
func (r *Registry) VerifyHolds(ctx context.Context, tripID, holderID string, seatIDs []string) error {
	reservations, err := r.tripReservations(ctx, tripID)
	if err != nil {
		return err
	}

	now := r.now()

	for _, seatID := range seatIDs {
		resv := reservations[seatID]

		if resv.EffectiveState(now) != domain.ReservationTempHeld {
			return domain.ErrReservationExpired
		}

		if resv.HolderID != holderID {
			return domain.ErrNotHeldByCaller
		}
	}

	return nil
}

func (r *Registry) seat(ctx context.Context, tripID, seatID string) (*domain.Seat, error) {
	seats, err := r.catalog.SeatsByTripAndIDs(ctx, tripID, []string{seatID})
	if err != nil {
		return nil, err
	}

	if len(seats) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return &seats[0], nil
}

func (r *Registry) tripReservations(ctx context.Context, tripID string) (map[string]*domain.SeatReservation, error) {
	res, err := tripStateScript.Run(ctx, r.rdb, []string{tripIndexKey(tripID)}, seatKeyPrefix(tripID)).Slice()
	if err != nil {
		return nil, fmt.Errorf("trip state script: %w", err)
	}

	const fields = 6
	if len(res)%fields != 0 {
		return nil, fmt.Errorf("trip state script returned %d values, want a multiple of %d", len(res), fields)
	}

	reservations := make(map[string]*domain.SeatReservation, len(res)/fields)

	for i := 0; i+fields <= len(res); i += fields {
		resv := &domain.SeatReservation{
			TripID:    tripID,
			SeatID:    asString(res[i]),
			State:     domain.ReservationState(asString(res[i+1])),
			HolderID:  asString(res[i+2]),
			BookingID: asString(res[i+3]),
		}

		resv.Version, _ = strconv.ParseInt(asString(res[i+4]), 10, 64)

		if expires, _ := strconv.ParseInt(asString(res[i+5]), 10, 64); expires > 0 {
			resv.ExpiresAt = time.Unix(expires, 0)
		}

		reservations[resv.SeatID] = resv
	}

	return reservations, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
