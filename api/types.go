// Package api holds the wire types of the HTTP surface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId,omitempty"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type CreateHoldsRequest struct {
	SeatIds    []string `json:"seatIds" validate:"required,min=1,max=10,dive,seat_id"`
	TtlSeconds int      `json:"ttlSeconds" validate:"omitempty,min=30,max=1800"`
}

type HoldsResponse struct {
	TripId           string   `json:"tripId"`
	SeatIds          []string `json:"seatIds"`
	ExpiresInSeconds int      `json:"expiresInSeconds"`
}

type ReleaseHoldsRequest struct {
	SeatIds []string `json:"seatIds" validate:"required,min=1,max=10,dive,seat_id"`
}

type Seat struct {
	Id              string          `json:"id"`
	SeatNumber      string          `json:"seatNumber"`
	RowNumber       int             `json:"rowNumber"`
	Type            string          `json:"type"`
	IsWindow        bool            `json:"isWindow"`
	IsAisle         bool            `json:"isAisle"`
	PriceMultiplier decimal.Decimal `json:"priceMultiplier"`
	State           string          `json:"state"`
	Available       bool            `json:"available"`
	HeldByMe        bool            `json:"heldByMe"`
}

type SeatMapResponse struct {
	TripId string `json:"tripId"`
	Seats  []Seat `json:"seats"`
}

type CheckoutRequest struct {
	SeatIds []string `json:"seatIds" validate:"required,min=1,max=10,dive,seat_id"`
	Email   string   `json:"email" validate:"required,email"`
}

type CheckoutResponse struct {
	BookingId        string          `json:"bookingId"`
	PaymentSessionId string          `json:"paymentSessionId"`
	RedirectUrl      string          `json:"redirectUrl"`
	DeadlineAt       time.Time       `json:"deadlineAt"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
}

type PaymentResultRequest struct {
	Source  string `json:"source" validate:"required,oneof=navigation checkout_message deep_link platform_error"`
	Payload string `json:"payload" validate:"required"`
}

type PaymentSessionResponse struct {
	SessionId  string     `json:"sessionId"`
	Status     string     `json:"status"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}
