package app

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tersane/ferry-reservation-system/internal/domain"
	"github.com/tersane/ferry-reservation-system/internal/mocks"
	"github.com/tersane/ferry-reservation-system/internal/payment"
)

const webhookTestSecret = "whsec_test_secret"

type WebhookTestSuite struct {
	suite.Suite
	app       *application
	gateway   *mocks.MockPaymentGateway
	registry  *mocks.MockHoldRegistry
	finalizer *mocks.MockFinalizer
	payments  *mocks.MockPaymentRepo
}

func (s *WebhookTestSuite) SetupTest() {
	s.gateway = new(mocks.MockPaymentGateway)
	s.registry = new(mocks.MockHoldRegistry)
	s.finalizer = new(mocks.MockFinalizer)
	s.payments = new(mocks.MockPaymentRepo)

	coordinator := payment.NewCoordinator(
		payment.Config{
			CheckoutWindow: 15 * time.Minute,
			SafetyBuffer:   10 * time.Minute,
			MinGrace:       time.Minute,
		},
		s.gateway,
		s.registry,
		s.finalizer,
		s.payments,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	s.app = newTestApplication(func(a *application) {
		a.coordinator = coordinator
		a.config.stripe.webhookSecret = webhookTestSecret
	})
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}

func (s *WebhookTestSuite) openSession() *payment.Session {
	s.gateway.On("CreateSession", mock.Anything, mock.Anything).
		Return(&domain.GatewaySession{ID: "cs_123", URL: "https://pay.example/cs_123"}, nil).Once()
	s.payments.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	booking := &domain.BookingDraft{
		ID:           "booking-1",
		TripID:       "trip-1",
		HolderID:     "holder-1",
		SeatIDs:      []string{"12A", "12B"},
		TotalAmount:  decimal.NewFromInt(250),
		Currency:     "TRY",
		ContactEmail: "traveler@example.com",
	}

	session, err := s.app.coordinator.Create(context.Background(), booking, time.Now().Add(24*time.Hour))
	s.Require().NoError(err)

	return session
}

func (s *WebhookTestSuite) eventPayload(eventType, gatewaySessionID string) []byte {
	return fmt.Appendf(nil,
		`{"id":"evt_1","object":"event","api_version":%q,"type":%q,`+
			`"data":{"object":{"id":%q,"object":"checkout.session","payment_intent":"pi_123"}}}`,
		stripe.APIVersion, eventType, gatewaySessionID)
}

func (s *WebhookTestSuite) signedRequest(payload []byte, header string) (*httptest.ResponseRecorder, *http.Request) {
	r := httptest.NewRequest(http.MethodPost, "/v1/webhook", bytes.NewReader(payload))
	r.Header.Set("Stripe-Signature", header)

	return httptest.NewRecorder(), r
}

func signStripePayload(payload []byte, secret string) string {
	at := time.Now()
	sig := webhook.ComputeSignature(at, payload, secret)

	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func (s *WebhookTestSuite) TestRejectsInvalidSignature() {
	payload := s.eventPayload("checkout.session.completed", "cs_123")
	w, r := s.signedRequest(payload, signStripePayload(payload, "whsec_wrong_secret"))

	s.app.StripeWebhookHandler(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *WebhookTestSuite) TestCompletedEventResolvesSessionWithTransactionID() {
	session := s.openSession()

	s.payments.On("SetTransaction", mock.Anything, "cs_123", "pi_123").Return(nil).Once()
	s.payments.On("UpdateStatus", mock.Anything, "cs_123", domain.PaymentStatusSuccess, domain.ChannelWebhook, "").
		Return(nil).Once()
	s.finalizer.On("Finalize", mock.Anything, "booking-1").Return(domain.FinalizeOk, nil).Once()

	payload := s.eventPayload("checkout.session.completed", "cs_123")
	w, r := s.signedRequest(payload, signStripePayload(payload, webhookTestSecret))

	s.app.StripeWebhookHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	status, resolvedBy, _ := session.Status()
	s.Equal(domain.PaymentStatusSuccess, status)
	s.Equal(domain.ChannelWebhook, resolvedBy)

	s.payments.AssertExpectations(s.T())
	s.finalizer.AssertExpectations(s.T())
}

func (s *WebhookTestSuite) TestFailedPaymentEventCompensates() {
	session := s.openSession()

	s.registry.On("Release", mock.Anything, "12A", "trip-1", "holder-1").Return(nil).Once()
	s.registry.On("Release", mock.Anything, "12B", "trip-1", "holder-1").Return(nil).Once()
	s.finalizer.On("Cancel", mock.Anything, "booking-1", domain.CancelReasonPaymentFailed).Return(nil).Once()
	s.payments.On("UpdateStatus", mock.Anything, "cs_123", domain.PaymentStatusFailure, domain.ChannelWebhook, string(domain.CancelReasonPaymentFailed)).
		Return(nil).Once()
	s.payments.On("SetTransaction", mock.Anything, "cs_123", "pi_123").Return(nil).Once()

	payload := s.eventPayload("checkout.session.async_payment_failed", "cs_123")
	w, r := s.signedRequest(payload, signStripePayload(payload, webhookTestSecret))

	s.app.StripeWebhookHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	status, _, _ := session.Status()
	s.Equal(domain.PaymentStatusFailure, status)

	s.registry.AssertExpectations(s.T())
	s.finalizer.AssertExpectations(s.T())
}

func (s *WebhookTestSuite) TestUnknownSessionIsAcknowledged() {
	payload := s.eventPayload("checkout.session.completed", "cs_unknown")
	w, r := s.signedRequest(payload, signStripePayload(payload, webhookTestSecret))

	s.app.StripeWebhookHandler(w, r)

	// Acknowledged so the gateway stops retrying an event this process can
	// no longer correlate.
	s.Equal(http.StatusOK, w.Code)
	s.payments.AssertNotCalled(s.T(), "SetTransaction", mock.Anything, mock.Anything, mock.Anything)
	s.finalizer.AssertNotCalled(s.T(), "Finalize", mock.Anything, mock.Anything)
}

func (s *WebhookTestSuite) TestUnhandledEventTypeIsAcknowledged() {
	session := s.openSession()

	payload := s.eventPayload("payment_intent.created", "cs_123")
	w, r := s.signedRequest(payload, signStripePayload(payload, webhookTestSecret))

	s.app.StripeWebhookHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	status, _, _ := session.Status()
	s.Equal(domain.PaymentStatusAwaitingGateway, status)
}
