// Package product defines the catalog model and the seller-facing listing
// workflow.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/cart"
)

// ErrNotFound is returned when a requested product does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog listing.
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Category    string
	Subcategory string
	Price       decimal.Decimal
	ImageURL    string
	InStock     bool
	Approved    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartProduct returns the subset of p the cart keeps per line.
func (p Product) CartProduct() cart.Product {
	return cart.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Price:       p.Price,
		Image:       p.ImageURL,
		InStock:     p.InStock,
	}
}

// Category groups subcategories under a top-level category name.
type Category struct {
	Name          string
	Subcategories []string
}

// Repository defines read operations for the public catalog.
type Repository interface {
	Search(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Categories(ctx context.Context) ([]Category, error)
}

// Scope restricts seller operations to one seller's listings. An empty
// SellerID matches any seller and is only used for admins.
type Scope struct {
	SellerID string
}

// SellerRepository defines write operations on listings.
type SellerRepository interface {
	ListBySeller(ctx context.Context, sellerID string) ([]Product, error)
	Create(ctx context.Context, p Product) error
	// Update overwrites the editable fields of p.ID within scope and returns
	// the stored row.
	Update(ctx context.Context, scope Scope, p Product) (*Product, error)
	Delete(ctx context.Context, scope Scope, id string) error
	SetApproved(ctx context.Context, id string, approved bool) error
}
