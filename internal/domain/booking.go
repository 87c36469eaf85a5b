package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusDraft           BookingStatus = "draft"
	BookingStatusAwaitingPayment BookingStatus = "awaiting_payment"
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusCancelled       BookingStatus = "cancelled"
)

type CancelReason string

const (
	CancelReasonPaymentFailed CancelReason = "payment_failed"
	CancelReasonUserCancelled CancelReason = "user_cancelled"
	CancelReasonTimedOut      CancelReason = "timed_out"
)

// BookingDraft is owned exclusively by the flow that created it until it
// reaches a terminal status.
type BookingDraft struct {
	ID           string
	TripID       string
	HolderID     string
	SeatIDs      []string
	ContactEmail string
	TotalAmount  decimal.Decimal
	Currency     string
	Status       BookingStatus
	CancelReason CancelReason
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *BookingDraft) error
	GetByID(ctx context.Context, id string) (*BookingDraft, error)
	MarkAwaitingPayment(ctx context.Context, id string) error
	// Confirm moves an awaiting_payment draft to confirmed. Returns false
	// when the draft was already terminal, which makes the booking row
	// itself the finalization idempotency key.
	Confirm(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id string, reason CancelReason) (bool, error)
}

type FinalizeResult string

const (
	FinalizeOk          FinalizeResult = "ok"
	FinalizeAlreadyDone FinalizeResult = "already_finalized"
)

type BookingFinalizer interface {
	Finalize(ctx context.Context, bookingID string) (FinalizeResult, error)
	Cancel(ctx context.Context, bookingID string, reason CancelReason) error
}
