package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/auth"
)

// InvalidDraftError reports which listing field failed validation.
type InvalidDraftError struct {
	Field  string
	Reason string
}

func (e *InvalidDraftError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Draft is seller input for creating or editing a listing.
type Draft struct {
	Name        string
	Description string
	Category    string
	Subcategory string
	Price       decimal.Decimal
	ImageURL    string
	InStock     bool
}

// Validate checks required fields and the price.
func (d Draft) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return &InvalidDraftError{Field: "name", Reason: "required"}
	case strings.TrimSpace(d.Description) == "":
		return &InvalidDraftError{Field: "description", Reason: "required"}
	case strings.TrimSpace(d.Category) == "":
		return &InvalidDraftError{Field: "category", Reason: "required"}
	case d.Price.IsNegative():
		return &InvalidDraftError{Field: "price", Reason: "must not be negative"}
	}
	return nil
}

// Service implements seller and admin listing operations.
type Service struct {
	listings SellerRepository
	now      func() time.Time
	newID    func() string
}

// NewService creates a product Service.
func NewService(listings SellerRepository) *Service {
	return &Service{
		listings: listings,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func requireSeller(id auth.Identity) error {
	if id.UserID == "" || !id.Role.CanSell() {
		return auth.ErrForbidden
	}
	return nil
}

func scopeOf(id auth.Identity) Scope {
	if id.Role.IsAdmin() {
		return Scope{}
	}
	return Scope{SellerID: id.UserID}
}

// List returns the caller's own listings, newest first.
func (s *Service) List(ctx context.Context, id auth.Identity) ([]Product, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	products, err := s.listings.ListBySeller(ctx, id.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list seller products")
	}
	return products, nil
}

// Create stores a new listing owned by the caller. Listings by sellers start
// unapproved; listings by admins are approved immediately.
func (s *Service) Create(ctx context.Context, id auth.Identity, d Draft) (*Product, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := Product{
		ID:          s.newID(),
		SellerID:    id.UserID,
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Category:    strings.TrimSpace(d.Category),
		Subcategory: strings.TrimSpace(d.Subcategory),
		Price:       d.Price,
		ImageURL:    strings.TrimSpace(d.ImageURL),
		InStock:     d.InStock,
		Approved:    id.Role.IsAdmin(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.listings.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}

// Update replaces the editable fields of one of the caller's listings. The
// approval flag is left as stored.
func (s *Service) Update(ctx context.Context, id auth.Identity, productID string, d Draft) (*Product, error) {
	if err := requireSeller(id); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	p := Product{
		ID:          productID,
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Category:    strings.TrimSpace(d.Category),
		Subcategory: strings.TrimSpace(d.Subcategory),
		Price:       d.Price,
		ImageURL:    strings.TrimSpace(d.ImageURL),
		InStock:     d.InStock,
		UpdatedAt:   s.now().UTC(),
	}
	updated, err := s.listings.Update(ctx, scopeOf(id), p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update product")
	}
	return updated, nil
}

// Delete removes one of the caller's listings.
func (s *Service) Delete(ctx context.Context, id auth.Identity, productID string) error {
	if err := requireSeller(id); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, scopeOf(id), productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// Approve makes a listing visible in the public catalog. Admin only.
func (s *Service) Approve(ctx context.Context, id auth.Identity, productID string) error {
	if !id.Role.IsAdmin() {
		return auth.ErrForbidden
	}
	if err := s.listings.SetApproved(ctx, productID, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "approve product")
	}
	return nil
}
