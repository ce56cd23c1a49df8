// Package service holds application logic that sits between the HTTP
// handlers and the repositories: event publishing, bulk table creation and
// report aggregation.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/log"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
)

// EventPublisher sends reservation events to RabbitMQ. It dials per
// publish, so a broker outage only costs the events published during it.
type EventPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	now         func() time.Time
}

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string) *EventPublisher {
	return &EventPublisher{url: url, queue: queue.ReservationsQueue, dialTimeout: 3 * time.Second, now: time.Now}
}

var _ admission.Notifier = (*EventPublisher)(nil)

// Notify implements admission.Notifier.
func (p *EventPublisher) Notify(ctx context.Context, kind admission.EventKind, r model.Reservation) error {
	ev := queue.NewReservationEvent(string(kind), r, p.now())
	err := p.Publish(ctx, ev)
	metrics.ObserveEventPublish(ev.Type, err)
	return err
}

// Publish marshals ev and publishes it as a persistent message on the
// reservations queue through the default exchange.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	// Events are published after the HTTP commit, so a dead broker must not
	// hold the response for the driver's 30s default.
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	log.Debug(ctx, "reservation event published",
		slog.String("event_id", ev.ID), slog.String("type", ev.Type), slog.Uint64("reservation_id", ev.ReservationID))
	return nil
}
