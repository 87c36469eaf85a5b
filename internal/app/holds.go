package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tersane/ferry-reservation-system/api"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// CreateHolds acquires temporary holds on a set of seats for the caller's
// session. The acquisition is all-or-nothing: when any seat is lost to
// another holder, the seats already taken in this request are released
// again before the conflict is reported.
func (app *application) CreateHolds(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	var req api.CreateHoldsRequest
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

	ttl := app.config.holds.ttl
	if req.TtlSeconds > 0 {
		ttl = time.Duration(req.TtlSeconds) * time.Second
	}

	holderID := app.holderID(r)

	acquired := make([]string, 0, len(req.SeatIds))

	for _, seatID := range req.SeatIds {
		result, err := app.registry.TryHold(r.Context(), seatID, tripID, holderID, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				app.releaseSeats(r, tripID, holderID, acquired)
				app.errorResponse(w, r, http.StatusNotFound, fmt.Sprintf("seat %s not found on this trip", seatID))
				return
			}
			app.releaseSeats(r, tripID, holderID, acquired)
			app.serverErrorResponse(w, r, err)
			return
		}

		switch result {
		case domain.HoldOk:
			acquired = append(acquired, seatID)
		case domain.HoldBlocked:
			app.releaseSeats(r, tripID, holderID, acquired)
			app.editConflictResponse(w, r, fmt.Sprintf("seat %s is not available for selection", seatID))
			return
		default:
			app.releaseSeats(r, tripID, holderID, acquired)
			app.editConflictResponse(w, r, fmt.Sprintf("seat %s is already taken", seatID))
			return
		}
	}

	resp := api.HoldsResponse{
		TripId:           tripID,
		SeatIds:          acquired,
		ExpiresInSeconds: int(ttl.Seconds()),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ReleaseHolds gives seats back voluntarily. Releasing a seat the caller no
// longer holds is a no-op, so retries are harmless.
func (app *application) ReleaseHolds(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	var req api.ReleaseHoldsRequest
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

	holderID := app.holderID(r)

	for _, seatID := range req.SeatIds {
		err := app.registry.Release(r.Context(), seatID, tripID, holderID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) releaseSeats(r *http.Request, tripID, holderID string, seatIDs []string) {
	for _, seatID := range seatIDs {
		err := app.registry.Release(r.Context(), seatID, tripID, holderID)
		if err != nil {
			app.logger.Error("failed to release seat after partial hold", "trip", tripID, "seat", seatID, "error", err)
		}
	}
}
