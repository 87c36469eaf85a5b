package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"
	PaymentStatusAwaitingGateway PaymentStatus = "awaiting_gateway"
	PaymentStatusSuccess         PaymentStatus = "success"
	PaymentStatusFailure         PaymentStatus = "failure"
	PaymentStatusCancelled       PaymentStatus = "cancelled"
	PaymentStatusTimedOut        PaymentStatus = "timed_out"
)

// Terminal reports whether no further transition is accepted from s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailure, PaymentStatusCancelled, PaymentStatusTimedOut:
		return true
	}
	return false
}

// ResultChannel identifies which detection path resolved a payment session.
type ResultChannel string

const (
	ChannelNavigation      ResultChannel = "navigation"
	ChannelCheckoutMessage ResultChannel = "checkout_message"
	ChannelDeepLink        ResultChannel = "deep_link"
	ChannelPlatformError   ResultChannel = "platform_error"
	ChannelWebhook         ResultChannel = "webhook"
	ChannelDeadline        ResultChannel = "deadline"
	ChannelUser            ResultChannel = "user"
)

type PaymentOutcome string

const (
	OutcomeSuccess   PaymentOutcome = "SUCCESS"
	OutcomeCancelled PaymentOutcome = "CANCELLED"
	OutcomeFailure   PaymentOutcome = "FAILURE"
)

type GatewaySession struct {
	ID  string
	URL string
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, booking *BookingDraft) (*GatewaySession, error)
}

// Payment is the durable record mirroring a payment session's terminal state.
type Payment struct {
	ID               int
	BookingID        string
	GatewaySessionID string
	Amount           decimal.Decimal
	Currency         string
	Status           PaymentStatus
	ResolvedBy       ResultChannel
	TransactionID    string
	ErrorMsg         string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	UpdateStatus(ctx context.Context, gatewaySessionID string, status PaymentStatus, resolvedBy ResultChannel, errMsg string) error
	SetTransaction(ctx context.Context, gatewaySessionID, transactionID string) error
}
