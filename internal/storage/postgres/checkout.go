package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"

	"github.com/xenking/nilecart/internal/domain/cart"
	"github.com/xenking/nilecart/internal/domain/checkout"
)

var _ checkout.Recorder = (*CheckoutRepository)(nil)

// CheckoutRepository stores checkout requests.
type CheckoutRepository struct {
	db DB
}

// NewCheckoutRepository returns a CheckoutRepository that uses db.
func NewCheckoutRepository(db DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// Record inserts r. Lines and address are stored as JSONB.
func (r *CheckoutRepository) Record(ctx context.Context, rec checkout.Record) error {
	var userID *string
	if rec.UserID != "" {
		userID = &rec.UserID
	}

	_, err := r.db.Exec(ctx, `INSERT INTO checkout_requests
		(id, session_id, user_id, items, total, item_count, address, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SessionID, userID, encodeItems(rec.Lines), rec.Total, rec.ItemCount,
		encodeAddress(rec.Address), rec.Message, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording checkout %q: %w", rec.ID, err)
	}
	return nil
}

func encodeItems(lines []cart.Line) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("productId", func(e *jx.Encoder) { e.Str(l.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
				e.Field("category", func(e *jx.Encoder) { e.Str(l.Category) })
				e.Field("price", func(e *jx.Encoder) { e.Str(l.Price.String()) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("subtotal", func(e *jx.Encoder) { e.Str(l.Subtotal().String()) })
			})
		}
	})
	return e.Bytes()
}

func encodeAddress(a cart.DeliveryAddress) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("fullName", func(e *jx.Encoder) { e.Str(a.FullName) })
		e.Field("phoneNumber", func(e *jx.Encoder) { e.Str(a.PhoneNumber) })
		e.Field("street", func(e *jx.Encoder) { e.Str(a.Street) })
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
		if a.Landmark != "" {
			e.Field("landmark", func(e *jx.Encoder) { e.Str(a.Landmark) })
		}
	})
	return e.Bytes()
}
