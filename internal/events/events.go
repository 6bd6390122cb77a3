// Package events publishes domain events to the RabbitMQ topic exchange.
package events

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/cart"
)

const (
	Exchange                 = "nilecart.events"
	CartCheckedOutRoutingKey = "cart.checkedout.v1"
	CartCheckedOutName       = "CartCheckedOut"
	DefaultProducer          = "nilecart-api"
)

// CartCheckedOut is emitted after a cart has been handed off to checkout.
type CartCheckedOut struct {
	CheckoutID string
	SessionID  string
	// UserID is empty for anonymous shoppers.
	UserID     string
	Lines      []cart.Line
	Total      decimal.Decimal
	ItemCount  int
	OccurredAt time.Time
}

// Publisher delivers CartCheckedOut events.
type Publisher interface {
	PublishCartCheckedOut(ctx context.Context, ev CartCheckedOut) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishCartCheckedOut(context.Context, CartCheckedOut) error { return nil }

// Envelope carries the metadata shared by all published events.
type Envelope struct {
	EventName    string
	EventVersion int
	EventID      string
	Producer     string
	PartitionKey string
	OccurredAt   time.Time
}

// NewEnvelope returns an envelope for ev with a fresh event ID.
func NewEnvelope(ev CartCheckedOut, producer string) Envelope {
	return Envelope{
		EventName:    CartCheckedOutName,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producer,
		PartitionKey: ev.SessionID,
		OccurredAt:   ev.OccurredAt.UTC(),
	}
}

// EncodeCartCheckedOut renders the wire form of ev.
func EncodeCartCheckedOut(env Envelope, ev CartCheckedOut) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("eventName", func(e *jx.Encoder) { e.Str(env.EventName) })
		e.Field("eventVersion", func(e *jx.Encoder) { e.Int(env.EventVersion) })
		e.Field("eventId", func(e *jx.Encoder) { e.Str(env.EventID) })
		e.Field("producer", func(e *jx.Encoder) { e.Str(env.Producer) })
		e.Field("partitionKey", func(e *jx.Encoder) { e.Str(env.PartitionKey) })
		e.Field("occurredAt", func(e *jx.Encoder) { e.Str(env.OccurredAt.Format(time.RFC3339Nano)) })
		e.Field("payload", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("checkoutId", func(e *jx.Encoder) { e.Str(ev.CheckoutID) })
				e.Field("sessionId", func(e *jx.Encoder) { e.Str(ev.SessionID) })
				e.Field("userId", func(e *jx.Encoder) {
					if ev.UserID == "" {
						e.Null()
						return
					}
					e.Str(ev.UserID)
				})
				e.Field("items", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, l := range ev.Lines {
							e.Obj(func(e *jx.Encoder) {
								e.Field("productId", func(e *jx.Encoder) { e.Str(l.ID) })
								e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
								e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
								e.Field("price", func(e *jx.Encoder) { e.Str(l.Price.StringFixed(2)) })
							})
						}
					})
				})
				e.Field("totalAmount", func(e *jx.Encoder) { e.Str(ev.Total.StringFixed(2)) })
				e.Field("itemCount", func(e *jx.Encoder) { e.Int(ev.ItemCount) })
			})
		})
	})
	return e.Bytes()
}
