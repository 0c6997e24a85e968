// Package queue consumes event envelopes from an AMQP queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/shop"
	logx "tgnotifier/pkg/logx"
)

const DefaultQueue = "tgnotifier.events"

var ErrNoURL = errors.New("queue: amqp url is empty")

type Config struct {
	URL      string
	Queue    string
	Prefetch int
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev shop.Event) dispatch.Outcome
}

type Consumer struct {
	cfg Config
	d   Dispatcher
	log logx.Logger
}

func New(cfg Config, d Dispatcher, log logx.Logger) *Consumer {
	if strings.TrimSpace(cfg.Queue) == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Consumer{cfg: cfg, d: d, log: log.With(logx.String("comp", "queue"), logx.String("queue", cfg.Queue))}
}

// Run connects, declares the durable queue and consumes until ctx is done or
// the connection drops. A dropped connection returns an error so the caller
// can restart it.
func (c *Consumer) Run(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.URL) == "" {
		return ErrNoURL
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	if _, err := ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // auto-deleted
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "tgnotifier-"+uuid.NewString()[:8], false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.log.Info("queue consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("amqp connection closed")
			}
			return fmt.Errorf("amqp connection closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery. An undecodable envelope is nacked without
// requeue. Anything else is acked after dispatch, delivery failures included.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	ev, err := shop.ParseEnvelope(d.Body)
	if err != nil {
		c.log.Warn("dropping invalid envelope", logx.Err(err), logx.String("message_id", d.MessageId))
		if err := d.Nack(false, false); err != nil {
			c.log.Warn("nack failed", logx.Err(err))
		}
		return
	}

	id := d.MessageId
	if id == "" {
		id = uuid.NewString()
	}
	out := c.d.Dispatch(dispatch.WithID(context.WithoutCancel(ctx), id), ev)
	if out != dispatch.Sent && out != dispatch.Skipped {
		c.log.Warn("event not delivered", logx.String("dispatch_id", id), logx.String("outcome", string(out)))
	}
	if err := d.Ack(false); err != nil {
		c.log.Warn("ack failed", logx.Err(err))
	}
}
