package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/restaurant-table-reservation/internal/log"
)

// Journal appends reservation events to <dir>/reservations.log.
type Journal struct {
	Dir string
}

// Append writes one line for ev.
func (j Journal) Append(ev ReservationEvent) error {
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", j.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(j.Dir, "reservations.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(ev.LogLine()); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Handle decodes a delivery body and journals it.
func (j Journal) Handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == 0 || ev.Type == "" {
		return errors.New("event without reservation id or type")
	}
	return j.Append(ev)
}

// Consume connects to url, declares the reservations queue and journals
// every delivery until ctx is cancelled. Broker failures trigger a
// reconnect with exponential backoff capped at 30s. Undecodable messages
// are rejected without requeue.
func Consume(ctx context.Context, url string, j Journal) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn(ctx, "reservation consumer: dial failed",
				log.Err("error", err), slog.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, j)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(ctx, "reservation consumer: loop ended, reconnecting", log.Err("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, j Journal) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn(ctx, "reservation consumer: set QoS failed", log.Err("error", err))
	}
	if _, err := ch.QueueDeclare(ReservationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ReservationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info(ctx, "reservation consumer: listening", slog.String("queue", ReservationsQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := j.Handle(d.Body); err != nil {
				log.Error(ctx, "reservation consumer: handle failed", log.Err("error", err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
