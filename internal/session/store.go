// Package session keeps one cart engine per shopper session.
package session

import (
	"context"

	"github.com/xenking/nilecart/internal/domain/cart"
)

// Store owns the cart engines of all sessions.
//
// Update hands fn exclusive use of the session's engine. If fn returns an
// error the engine is left as it was and the error is returned unchanged.
// Unknown session IDs read as an empty cart.
type Store interface {
	View(ctx context.Context, id string) (cart.State, error)
	Update(ctx context.Context, id string, fn func(*cart.Engine) error) (cart.State, error)
	Delete(ctx context.Context, id string) error
}
