package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 3 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Rabbit publishes events to the topic exchange over one AMQP channel.
type Rabbit struct {
	ch       channel
	producer string
}

var _ Publisher = (*Rabbit)(nil)

// Dial connects to url, opens a channel and declares the exchange. The
// returned connection must be closed by the caller after Rabbit.Close.
func Dial(url, producer string) (*Rabbit, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "open channel")
	}
	if err := declareExchange(ch); err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "declare exchange")
	}
	return newRabbit(ch, producer), conn, nil
}

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func newRabbit(ch channel, producer string) *Rabbit {
	if producer == "" {
		producer = DefaultProducer
	}
	return &Rabbit{ch: ch, producer: producer}
}

// PublishCartCheckedOut publishes ev as a persistent JSON message.
func (r *Rabbit) PublishCartCheckedOut(ctx context.Context, ev CartCheckedOut) error {
	env := NewEnvelope(ev, r.producer)
	body := EncodeCartCheckedOut(env, ev)

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := r.ch.PublishWithContext(
		pubCtx,
		Exchange,
		CartCheckedOutRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.EventID,
			Timestamp:    env.OccurredAt,
			Type:         env.EventName,
			AppId:        env.Producer,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "publish CartCheckedOut")
	}
	return nil
}

// Close closes the channel.
func (r *Rabbit) Close() error {
	return r.ch.Close()
}
