// Package booking holds the finalizer invoked by the payment coordinator on
// a session's terminal state: it commits the booking on success and rolls
// the draft back otherwise.
package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/tersane/ferry-reservation-system/internal/domain"
	"github.com/tersane/ferry-reservation-system/internal/mailer"
)

type Finalizer struct {
	bookings  domain.BookingRepository
	registry  domain.HoldRegistry
	publisher EventPublisher
	mailer    mailer.Mailer
	logger    *slog.Logger
}

func NewFinalizer(
	bookings domain.BookingRepository,
	registry domain.HoldRegistry,
	publisher EventPublisher,
	m mailer.Mailer,
	logger *slog.Logger) *Finalizer {

	return &Finalizer{
		bookings:  bookings,
		registry:  registry,
		publisher: publisher,
		mailer:    m,
		logger:    logger,
	}
}

// Finalize commits a paid booking: the draft row is conditionally moved to
// confirmed (which makes bookingID the idempotency key — a second call finds
// no row to move and reports AlreadyFinalized), the seat holds become booked
// reservations, and the confirmation event and email go out.
func (f *Finalizer) Finalize(ctx context.Context, bookingID string) (domain.FinalizeResult, error) {
	booking, err := f.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}

	confirmed, err := f.bookings.Confirm(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if !confirmed {
		return domain.FinalizeAlreadyDone, nil
	}

	for _, seatID := range booking.SeatIDs {
		err := f.registry.ConfirmBooking(ctx, seatID, booking.TripID, booking.HolderID, bookingID)
		if err != nil {
			// The payment already succeeded; losing a hold between payment
			// and finalization needs operator attention, not a rollback.
			f.logger.Error("failed to convert hold to booked reservation",
				"booking_id", bookingID, "seat_id", seatID, "trip_id", booking.TripID, "error", err)
		}
	}

	event := ConfirmedEvent{
		BookingID:    booking.ID,
		TripID:       booking.TripID,
		SeatIDs:      booking.SeatIDs,
		TotalAmount:  booking.TotalAmount.String(),
		Currency:     booking.Currency,
		ContactEmail: booking.ContactEmail,
		ConfirmedAt:  time.Now().UTC(),
	}

	if err := f.publisher.PublishBookingConfirmed(ctx, event); err != nil {
		f.logger.Error("failed to publish booking confirmed event", "booking_id", bookingID, "error", err)
	}

	f.background(func() {
		err := f.mailer.Send(booking.ContactEmail, "booking_confirmed.tmpl", event)
		if err != nil {
			f.logger.Error("failed to send confirmation email", "booking_id", bookingID, "error", err)
		}
	})

	return domain.FinalizeOk, nil
}

// Cancel rolls a draft back with the recorded reason. Cancelling a booking
// that already reached a terminal status is a no-op.
func (f *Finalizer) Cancel(ctx context.Context, bookingID string, reason domain.CancelReason) error {
	cancelled, err := f.bookings.Cancel(ctx, bookingID, reason)
	if err != nil {
		return err
	}

	if cancelled {
		f.logger.Info("booking draft cancelled", "booking_id", bookingID, "reason", reason)
	}

	return nil
}

func (f *Finalizer) background(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				f.logger.Error("background task panicked", "error", err)
			}
		}()

		fn()
	}()
}
