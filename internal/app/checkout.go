package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tersane/ferry-reservation-system/api"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// CreateCheckout turns the caller's held seats into a booking draft and opens
// a payment session for it. The holds are verified to belong to the calling
// session right before pricing, so a draft can never be built on seats the
// caller lost in the meantime.
func (app *application) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	var req api.CheckoutRequest
	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	trip, err := app.catalog.TripByID(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	holderID := app.holderID(r)

	err = app.registry.VerifyHolds(r.Context(), tripID, holderID, req.SeatIds)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotHeldByCaller):
			app.editConflictResponse(w, r, "one or more seats are not held by the current session")
		case errors.Is(err, domain.ErrReservationExpired):
			app.editConflictResponse(w, r, "one or more seat holds have expired")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	seats, err := app.catalog.SeatsByTripAndIDs(r.Context(), tripID, req.SeatIds)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seats) != len(req.SeatIds) {
		app.errorResponse(w, r, http.StatusNotFound, "one or more seats not found on this trip")
		return
	}

	total := decimal.Zero
	for _, seat := range seats {
		total = total.Add(trip.BaseFare.Mul(seat.PriceMultiplier))
	}

	booking := &domain.BookingDraft{
		ID:           uuid.New().String(),
		TripID:       tripID,
		HolderID:     holderID,
		SeatIDs:      req.SeatIds,
		ContactEmail: req.Email,
		TotalAmount:  total,
		Currency:     trip.Currency,
		Status:       domain.BookingStatusDraft,
	}

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateBooking) {
			app.editConflictResponse(w, r, "a booking already exists for these seats")
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.bookingRepo.MarkAwaitingPayment(r.Context(), booking.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	session, err := app.coordinator.Create(r.Context(), booking, trip.Departure)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if status, _, _ := session.Status(); status.Terminal() {
		app.editConflictResponse(w, r, "the checkout window for this trip has closed")
		return
	}

	resp := api.CheckoutResponse{
		BookingId:        booking.ID,
		PaymentSessionId: session.ID,
		RedirectUrl:      session.RedirectURL,
		DeadlineAt:       session.DeadlineAt,
		TotalAmount:      total,
		Currency:         trip.Currency,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetPaymentSession reports the current state of a payment session, letting
// a client that missed its redirect poll for the outcome.
func (app *application) GetPaymentSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, ok := app.coordinator.Session(sessionID)
	if !ok {
		app.notFoundResponse(w, r)
		return
	}

	status, resolvedBy, resolvedAt := session.Status()

	resp := api.PaymentSessionResponse{
		SessionId:  session.ID,
		Status:     string(status),
		ResolvedBy: string(resolvedBy),
	}
	if !resolvedAt.IsZero() {
		resp.ResolvedAt = &resolvedAt
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ReportPaymentResult is the funnel every client-side detection channel posts
// into: the navigation interceptor, the checkout widget message, the deep
// link handler, and the platform error callback. Whichever lands first with a
// definitive outcome wins; the rest are discarded.
func (app *application) ReportPaymentResult(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req api.PaymentResultRequest
	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.coordinator.ReportResult(r.Context(), sessionID, domain.ResultChannel(req.Source), req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrCallbackUnparseable):
			app.badRequestResponse(w, r, fmt.Errorf("the payment result payload could not be interpreted"))
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// CancelPaymentSession handles an explicit user abort. Cancelling a session
// that already reached a terminal state is a no-op.
func (app *application) CancelPaymentSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	err := app.coordinator.Cancel(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
