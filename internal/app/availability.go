package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tersane/ferry-reservation-system/api"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// GetTripSeats returns the seat map of a trip with per-seat availability as
// seen by the calling session.
func (app *application) GetTripSeats(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	seats, err := app.registry.Snapshot(r.Context(), tripID, app.holderID(r))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.SeatMapResponse{
		TripId: tripID,
		Seats:  make([]api.Seat, 0, len(seats)),
	}

	for _, seat := range seats {
		resp.Seats = append(resp.Seats, api.Seat{
			Id:              seat.SeatID,
			SeatNumber:      seat.SeatNumber,
			RowNumber:       seat.RowNumber,
			Type:            string(seat.Type),
			IsWindow:        seat.IsWindow,
			IsAisle:         seat.IsAisle,
			PriceMultiplier: seat.PriceMultiplier,
			State:           string(seat.State),
			Available:       seat.Available,
			HeldByMe:        seat.HeldByViewer,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StreamTripAvailability pushes seat state deltas for one trip over SSE
// until the client goes away. A slow client gets deltas dropped rather than
// slowing the other observers of the trip; the client is expected to refetch
// the seat map when it reconnects.
func (app *application) StreamTripAvailability(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverErrorResponse(w, r, errors.New("streaming is not supported by the connection"))
		return
	}

	observerID := fmt.Sprintf("%s/%s", app.holderID(r), middleware.GetReqID(r.Context()))

	sub, err := app.propagator.Subscribe(tripID, observerID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case delta, open := <-sub.Deltas():
			if !open {
				return
			}

			payload, err := json.Marshal(delta)
			if err != nil {
				app.logger.Error("failed to encode seat delta", "trip", tripID, "error", err)
				continue
			}

			fmt.Fprintf(w, "event: seat\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
