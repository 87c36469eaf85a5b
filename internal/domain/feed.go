package domain

import "context"

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// SeatChange is one event on a trip's reservation change feed. Delivery is
// at-least-once; Version lets consumers discard duplicates and stale events.
type SeatChange struct {
	TripID    string           `json:"trip_id"`
	SeatID    string           `json:"seat_id"`
	Op        ChangeOp         `json:"op"`
	State     ReservationState `json:"state"`
	HolderID  string           `json:"holder,omitempty"`
	BookingID string           `json:"booking_id,omitempty"`
	Version   int64            `json:"version"`
	ExpiresAt int64            `json:"expires_at,omitempty"`
}

type ChangeFeed interface {
	// Subscribe returns a channel of changes for one trip and a stop
	// function that must be called to release the subscription.
	Subscribe(ctx context.Context, tripID string) (<-chan SeatChange, func(), error)
}
