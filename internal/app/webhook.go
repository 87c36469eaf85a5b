package app

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// StripeWebhookHandler feeds gateway-side events into the same first-wins
// funnel the client channels use. It is the only channel trusted to carry
// the gateway transaction id.
func (app *application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 65536))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.stripe.webhookSecret)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var outcome domain.PaymentOutcome

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		outcome = domain.OutcomeSuccess
	case "checkout.session.async_payment_failed":
		outcome = domain.OutcomeFailure
	case "checkout.session.expired":
		outcome = domain.OutcomeCancelled
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	var checkoutSession stripe.CheckoutSession
	err = json.Unmarshal(event.Data.Raw, &checkoutSession)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, ok := app.coordinator.SessionByGateway(checkoutSession.ID)
	if !ok {
		// Unknown sessions are acknowledged so the gateway stops retrying;
		// this happens after a restart loses the in-memory session table.
		app.logger.Warn("webhook for unknown payment session", "gateway_session_id", checkoutSession.ID, "event", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	var transactionID string
	if checkoutSession.PaymentIntent != nil {
		transactionID = checkoutSession.PaymentIntent.ID
	}

	app.coordinator.ReportOutcome(r.Context(), session, domain.ChannelWebhook, outcome, transactionID)

	w.WriteHeader(http.StatusOK)
}
