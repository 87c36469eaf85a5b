// Package propagator consumes per-trip reservation change events and fans
// availability deltas out to local observers. Fan-out is broadcast: a slow or
// disconnected observer loses deltas, it never blocks delivery to the others.
package propagator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tersane/ferry-reservation-system/internal/domain"
)

const defaultQueueSize = 32

// SeatDelta is one availability update pushed to observers. Applying the
// same delta twice is a no-op, so at-least-once delivery upstream is fine.
type SeatDelta struct {
	TripID    string                   `json:"trip_id"`
	SeatID    string                   `json:"seat_id"`
	State     domain.AvailabilityState `json:"state"`
	Available bool                     `json:"available"`
	HolderID  string                   `json:"holder,omitempty"`
	Version   int64                    `json:"version"`
}

type Propagator struct {
	feed      domain.ChangeFeed
	logger    *slog.Logger
	queueSize int

	mu    sync.Mutex
	trips map[string]*tripHub
}

type tripHub struct {
	tripID string
	cancel context.CancelFunc
	stop   func()

	mu        sync.Mutex
	observers map[*Subscription]struct{}
	versions  map[string]int64
	closed    bool
}

// Subscription is one observer's bounded delta queue.
type Subscription struct {
	ObserverID string

	deltas  chan SeatDelta
	dropped atomic.Int64
	close   func()
}

func (s *Subscription) Deltas() <-chan SeatDelta {
	return s.deltas
}

// Dropped reports how many deltas were discarded because the observer was
// too slow to drain its queue.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) Close() {
	s.close()
}

func New(feed domain.ChangeFeed, logger *slog.Logger) *Propagator {
	return &Propagator{
		feed:      feed,
		logger:    logger,
		queueSize: defaultQueueSize,
		trips:     make(map[string]*tripHub),
	}
}

// Subscribe registers an observer for one trip's availability deltas. The
// first observer on a trip starts the underlying feed subscription; the last
// one leaving tears it down.
func (p *Propagator) Subscribe(tripID, observerID string) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hub := p.trips[tripID]
	if hub == nil {
		var err error

		hub, err = p.startHub(tripID)
		if err != nil {
			return nil, err
		}

		p.trips[tripID] = hub
	}

	sub := &Subscription{
		ObserverID: observerID,
		deltas:     make(chan SeatDelta, p.queueSize),
	}
	sub.close = func() { p.unsubscribe(tripID, hub, sub) }

	hub.mu.Lock()
	hub.observers[sub] = struct{}{}
	hub.mu.Unlock()

	return sub, nil
}

func (p *Propagator) startHub(tripID string) (*tripHub, error) {
	ctx, cancel := context.WithCancel(context.Background())

	events, stop, err := p.feed.Subscribe(ctx, tripID)
	if err != nil {
		cancel()
		return nil, err
	}

	hub := &tripHub{
		tripID:    tripID,
		cancel:    cancel,
		stop:      stop,
		observers: make(map[*Subscription]struct{}),
		versions:  make(map[string]int64),
	}

	go func() {
		for change := range events {
			p.broadcast(hub, change)
		}

		// Feed gone: drop the hub so the next subscriber reconnects, and
		// close observer queues so their streams end instead of hanging.
		p.dropHub(tripID, hub)
	}()

	return hub, nil
}

func (p *Propagator) broadcast(hub *tripHub, change domain.SeatChange) {
	delta := SeatDelta{
		TripID:    hub.tripID,
		SeatID:    change.SeatID,
		State:     domain.AvailabilityState(change.State),
		Available: change.State == domain.ReservationAvailable,
		HolderID:  change.HolderID,
		Version:   change.Version,
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	if change.Version != 0 && change.Version <= hub.versions[change.SeatID] {
		p.logger.Debug("discarding stale seat change",
			"trip_id", hub.tripID, "seat_id", change.SeatID, "version", change.Version)
		return
	}
	hub.versions[change.SeatID] = change.Version

	for sub := range hub.observers {
		select {
		case sub.deltas <- delta:
		default:
			if sub.dropped.Add(1) == 1 {
				p.logger.Warn("observer queue full, dropping deltas",
					"trip_id", hub.tripID, "observer", sub.ObserverID)
			}
		}
	}
}

func (p *Propagator) unsubscribe(tripID string, hub *tripHub, sub *Subscription) {
	hub.mu.Lock()

	if _, ok := hub.observers[sub]; !ok {
		hub.mu.Unlock()
		return
	}

	delete(hub.observers, sub)
	close(sub.deltas)
	empty := len(hub.observers) == 0
	hub.mu.Unlock()

	if !empty {
		return
	}

	p.mu.Lock()
	if p.trips[tripID] == hub {
		delete(p.trips, tripID)
	}
	p.mu.Unlock()

	hub.cancel()
	hub.stop()
}

func (p *Propagator) dropHub(tripID string, hub *tripHub) {
	p.mu.Lock()
	if p.trips[tripID] == hub {
		delete(p.trips, tripID)
	}
	p.mu.Unlock()

	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.closed {
		return
	}
	hub.closed = true

	for sub := range hub.observers {
		delete(hub.observers, sub)
		close(sub.deltas)
	}

	hub.cancel()
	hub.stop()
}

// Close tears down every hub and observer queue.
func (p *Propagator) Close() {
	p.mu.Lock()
	hubs := make([]*tripHub, 0, len(p.trips))
	for _, hub := range p.trips {
		hubs = append(hubs, hub)
	}
	p.trips = make(map[string]*tripHub)
	p.mu.Unlock()

	for _, hub := range hubs {
		p.dropHub(hub.tripID, hub)
	}
}
