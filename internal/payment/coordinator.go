// Package payment drives one payment attempt's lifecycle: session creation
// against the gateway, deadline computation from trip departure, arbitration
// of the detection channels that may all report a result for the same
// session, and compensating cleanup when the attempt does not succeed.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// terminalRetention is how long a resolved session stays addressable. Late
// duplicate reports within the window are logged and discarded instead of
// answering "unknown session"; after it the entry is pruned.
const terminalRetention = time.Hour

type Config struct {
	// CheckoutWindow is the longest a session may stay open.
	CheckoutWindow time.Duration
	// SafetyBuffer is subtracted from the time until departure so a
	// payment can never complete after the vessel has left.
	SafetyBuffer time.Duration
	// MinGrace is the shortest window a live session is ever given.
	MinGrace time.Duration
}

// Session is one payment attempt. Its terminal state is single-assignment:
// the first resolver wins, every later attempt is a recorded no-op.
type Session struct {
	ID               string
	BookingID        string
	TripID           string
	HolderID         string
	SeatIDs          []string
	GatewaySessionID string
	RedirectURL      string
	CreatedAt        time.Time
	DeadlineAt       time.Time

	mu         sync.Mutex
	status     domain.PaymentStatus
	resolvedBy domain.ResultChannel
	resolvedAt time.Time
	timer      *time.Timer
}

// Status returns the session's current status with who resolved it and when;
// the latter two are zero until a terminal transition happened.
func (s *Session) Status() (domain.PaymentStatus, domain.ResultChannel, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status, s.resolvedBy, s.resolvedAt
}

// resolve performs the terminal transition under the single-assignment
// guard. It only flips state and tears the timer down; it is never held
// across I/O. Returns false when the session was already terminal.
func (s *Session) resolve(status domain.PaymentStatus, by domain.ResultChannel, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return false
	}

	s.status = status
	s.resolvedBy = by
	s.resolvedAt = at

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	return true
}

type Coordinator struct {
	cfg       Config
	gateway   domain.PaymentGateway
	registry  domain.HoldRegistry
	finalizer domain.BookingFinalizer
	payments  domain.PaymentRepository
	logger    *slog.Logger
	now       func() time.Time
	retention time.Duration

	mu        sync.RWMutex
	sessions  map[string]*Session
	byGateway map[string]string
}

func NewCoordinator(
	cfg Config,
	gateway domain.PaymentGateway,
	registry domain.HoldRegistry,
	finalizer domain.BookingFinalizer,
	payments domain.PaymentRepository,
	logger *slog.Logger) *Coordinator {

	return &Coordinator{
		cfg:       cfg,
		gateway:   gateway,
		registry:  registry,
		finalizer: finalizer,
		payments:  payments,
		logger:    logger,
		now:       time.Now,
		retention: terminalRetention,
		sessions:  make(map[string]*Session),
		byGateway: make(map[string]string),
	}
}

// Create opens a payment session for a booking draft. The deadline is
// min(configured window, time until departure minus the safety buffer),
// never shorter than the minimum grace period. When that duration is not
// positive the session is born CANCELLED, the gateway is never contacted,
// and the compensating action runs immediately.
func (c *Coordinator) Create(ctx context.Context, booking *domain.BookingDraft, departure time.Time) (*Session, error) {
	now := c.now()

	session := &Session{
		ID:        uuid.New().String(),
		BookingID: booking.ID,
		TripID:    booking.TripID,
		HolderID:  booking.HolderID,
		SeatIDs:   booking.SeatIDs,
		CreatedAt: now,
		status:    domain.PaymentStatusCreated,
	}

	window := c.cfg.CheckoutWindow
	if until := departure.Sub(now) - c.cfg.SafetyBuffer; until < window {
		window = until
	}

	if window <= 0 {
		session.status = domain.PaymentStatusCancelled
		session.resolvedBy = domain.ChannelDeadline
		session.resolvedAt = now
		session.DeadlineAt = now

		c.register(session)

		c.logger.Warn("payment session cancelled at creation, departure too close",
			"booking_id", booking.ID, "trip_id", booking.TripID, "departure", departure)

		c.compensate(ctx, session, domain.CancelReasonTimedOut)
		c.evictLater(session)

		return session, nil
	}

	if window < c.cfg.MinGrace {
		window = c.cfg.MinGrace
	}

	gw, err := c.gateway.CreateSession(ctx, booking)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionCreationFailed, err)
	}

	session.GatewaySessionID = gw.ID
	session.RedirectURL = gw.URL
	session.DeadlineAt = now.Add(window)
	session.status = domain.PaymentStatusAwaitingGateway

	// Register before the durable insert: the gateway may deliver a webhook
	// for this session the moment CreateSession returns.
	c.register(session)

	err = c.payments.Create(ctx, &domain.Payment{
		BookingID:        booking.ID,
		GatewaySessionID: gw.ID,
		Amount:           booking.TotalAmount,
		Currency:         booking.Currency,
		Status:           domain.PaymentStatusAwaitingGateway,
	})
	if err != nil {
		c.evict(session)
		return nil, err
	}

	// The session is already addressable, so a fast webhook may have
	// resolved it; a terminal session gets no deadline timer.
	session.mu.Lock()
	if !session.status.Terminal() {
		session.timer = time.AfterFunc(window, func() { c.expire(session) })
	}
	session.mu.Unlock()

	c.logger.Info("payment session opened",
		"session_id", session.ID,
		"booking_id", booking.ID,
		"gateway_session_id", gw.ID,
		"deadline", session.DeadlineAt)

	return session, nil
}

// ReportResult is the single funnel for every detection channel. The first
// call carrying a definitive result wins; reports for an already-terminal
// session are accepted and discarded.
func (c *Coordinator) ReportResult(ctx context.Context, sessionID string, source domain.ResultChannel, rawPayload string) error {
	session, ok := c.Session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	result, err := Parse(rawPayload)
	if err != nil {
		// Recoverable: the session stays awaiting and the deadline timer
		// keeps running.
		c.logger.Warn("payment callback could not be parsed",
			"session_id", sessionID, "source", source)
		return err
	}

	if result.GatewaySessionID != "" && session.GatewaySessionID != "" &&
		result.GatewaySessionID != session.GatewaySessionID {
		c.logger.Warn("payment callback references a different gateway session",
			"session_id", sessionID, "source", source, "got", result.GatewaySessionID)
		return domain.ErrCallbackUnparseable
	}

	c.ReportOutcome(ctx, session, source, result.Outcome, result.TransactionID)

	return nil
}

// ReportOutcome applies an already-parsed outcome to a session. Used by
// ReportResult and by the gateway webhook, which arrives pre-structured.
func (c *Coordinator) ReportOutcome(ctx context.Context, session *Session, source domain.ResultChannel, outcome domain.PaymentOutcome, transactionID string) {
	var status domain.PaymentStatus

	switch outcome {
	case domain.OutcomeSuccess:
		status = domain.PaymentStatusSuccess
	case domain.OutcomeCancelled:
		status = domain.PaymentStatusCancelled
	case domain.OutcomeFailure:
		status = domain.PaymentStatusFailure
	default:
		c.logger.Warn("ignoring indefinite payment outcome", "session_id", session.ID, "source", source)
		return
	}

	if !session.resolve(status, source, c.now()) {
		// Duplicate result: accepted, logged, never surfaced as an error.
		c.logger.Info("discarding result for terminal payment session",
			"session_id", session.ID, "source", source, "outcome", outcome)
		return
	}

	c.logger.Info("payment session resolved",
		"session_id", session.ID, "status", status, "resolved_by", source)

	// The webhook is the only channel trusted to carry the gateway
	// transaction id onto the durable payment row.
	if source == domain.ChannelWebhook && transactionID != "" {
		if err := c.payments.SetTransaction(ctx, session.GatewaySessionID, transactionID); err != nil {
			c.logger.Error("failed to record gateway transaction", "session_id", session.ID, "error", err)
		}
	}

	c.afterTerminal(ctx, session, status)
}

// Cancel performs the user-initiated (or view-abandoned) terminal transition.
// It is idempotent: concurrent double invocation runs the compensating
// action exactly once.
func (c *Coordinator) Cancel(ctx context.Context, sessionID string) error {
	session, ok := c.Session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	if !session.resolve(domain.PaymentStatusCancelled, domain.ChannelUser, c.now()) {
		return nil
	}

	c.logger.Info("payment session cancelled by user", "session_id", session.ID)
	c.afterTerminal(ctx, session, domain.PaymentStatusCancelled)

	return nil
}

func (c *Coordinator) expire(session *Session) {
	if !session.resolve(domain.PaymentStatusTimedOut, domain.ChannelDeadline, c.now()) {
		return
	}

	c.logger.Info("payment session timed out", "session_id", session.ID, "booking_id", session.BookingID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.afterTerminal(ctx, session, domain.PaymentStatusTimedOut)
}

// afterTerminal runs the winner's side effects: finalization on success,
// compensation otherwise. Only the caller that won the terminal transition
// ever reaches this, so each side effect runs exactly once per session.
func (c *Coordinator) afterTerminal(ctx context.Context, session *Session, status domain.PaymentStatus) {
	c.evictLater(session)

	switch status {
	case domain.PaymentStatusSuccess:
		c.recordPayment(ctx, session, status, "")

		result, err := c.finalizer.Finalize(ctx, session.BookingID)
		if err != nil {
			c.logger.Error("booking finalization failed", "booking_id", session.BookingID, "error", err)
			return
		}
		if result == domain.FinalizeAlreadyDone {
			c.logger.Info("booking was already finalized", "booking_id", session.BookingID)
		}

	case domain.PaymentStatusFailure:
		c.compensate(ctx, session, domain.CancelReasonPaymentFailed)
	case domain.PaymentStatusCancelled:
		c.compensate(ctx, session, domain.CancelReasonUserCancelled)
	case domain.PaymentStatusTimedOut:
		c.compensate(ctx, session, domain.CancelReasonTimedOut)
	}
}

// compensate releases every seat hold behind the booking and cancels the
// draft with the recorded reason. Failures are logged, not propagated: a
// missed release still expires by TTL and the sweep reverts it.
func (c *Coordinator) compensate(ctx context.Context, session *Session, reason domain.CancelReason) {
	for _, seatID := range session.SeatIDs {
		if err := c.registry.Release(ctx, seatID, session.TripID, session.HolderID); err != nil {
			c.logger.Error("failed to release seat hold",
				"seat_id", seatID, "trip_id", session.TripID, "error", err)
		}
	}

	if err := c.finalizer.Cancel(ctx, session.BookingID, reason); err != nil {
		c.logger.Error("failed to cancel booking draft",
			"booking_id", session.BookingID, "reason", reason, "error", err)
	}

	if session.GatewaySessionID != "" {
		status, _, _ := session.Status()
		c.recordPayment(ctx, session, status, string(reason))
	}
}

func (c *Coordinator) recordPayment(ctx context.Context, session *Session, status domain.PaymentStatus, errMsg string) {
	_, resolvedBy, _ := session.Status()

	if err := c.payments.UpdateStatus(ctx, session.GatewaySessionID, status, resolvedBy, errMsg); err != nil {
		c.logger.Error("failed to update payment record",
			"gateway_session_id", session.GatewaySessionID, "error", err)
	}
}

func (c *Coordinator) register(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[session.ID] = session
	if session.GatewaySessionID != "" {
		c.byGateway[session.GatewaySessionID] = session.ID
	}
}

func (c *Coordinator) evict(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, session.ID)
	if session.GatewaySessionID != "" {
		delete(c.byGateway, session.GatewaySessionID)
	}
}

// evictLater prunes a terminal session from the lookup maps after the
// retention window, so the in-memory table does not grow with every attempt
// the process ever coordinated.
func (c *Coordinator) evictLater(session *Session) {
	time.AfterFunc(c.retention, func() { c.evict(session) })
}

func (c *Coordinator) Session(id string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[id]
	return s, ok
}

func (c *Coordinator) SessionByGateway(gatewayID string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byGateway[gatewayID]
	if !ok {
		return nil, false
	}

	s, ok := c.sessions[id]
	return s, ok
}
