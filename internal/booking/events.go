package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmedQueueName = "booking.confirmed"

// ConfirmedEvent is published when a booking is finalized. It carries enough
// for downstream consumers (ticketing, notifications, analytics) to act
// without querying the primary database.
type ConfirmedEvent struct {
	BookingID    string    `json:"booking_id"`
	TripID       string    `json:"trip_id"`
	SeatIDs      []string  `json:"seats"`
	TotalAmount  string    `json:"total_amount"`
	Currency     string    `json:"currency"`
	ContactEmail string    `json:"contact_email"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event ConfirmedEvent) error
}

// AMQPPublisher publishes confirmed-booking events to a durable queue.
// Publishing is best effort from the finalizer's point of view: errors are
// returned so the caller can log and move on.
type AMQPPublisher struct {
	url    string
	logger *slog.Logger
}

func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:    url,
		logger: logger,
	}
}

func (p *AMQPPublisher) PublishBookingConfirmed(ctx context.Context, event ConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(confirmedQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", confirmedQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
