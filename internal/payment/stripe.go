package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// StripeGateway creates hosted checkout sessions for booking drafts.
type StripeGateway struct {
	successURL string
	cancelURL  string
}

func NewStripeGateway(successURL, cancelURL string) *StripeGateway {
	return &StripeGateway{
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, booking *domain.BookingDraft) (*domain.GatewaySession, error) {
	amountCents := booking.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(booking.Currency)),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Ferry trip %s", booking.TripID)),
						Description: stripe.String(fmt.Sprintf(
							"%d seat(s): %s",
							len(booking.SeatIDs),
							strings.Join(booking.SeatIDs, ", "),
						)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"booking_id": booking.ID,
			"trip_id":    booking.TripID,
			"holder_id":  booking.HolderID,
		},
		ClientReferenceID: stripe.String(booking.ID),
		CustomerEmail:     stripe.String(booking.ContactEmail),
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}

	return &domain.GatewaySession{
		ID:  s.ID,
		URL: s.URL,
	}, nil
}
