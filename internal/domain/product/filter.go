package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidFilter is returned by Filter.Normalize for unusable filters.
var ErrInvalidFilter = errors.New("invalid filter")

// Sort is a catalog ordering.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
	SortNameAsc   Sort = "name_asc"
	SortNameDesc  Sort = "name_desc"
)

// Limits applied by Normalize.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Filter narrows a catalog search. Zero values mean "no constraint".
type Filter struct {
	// Query matches name or description, case-insensitively.
	Query       string
	Category    string
	Subcategory string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Sort        Sort
	Limit       int
	Offset      int
}

// Normalize trims text fields, applies defaults and validates the rest.
func (f Filter) Normalize() (Filter, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	f.Subcategory = strings.TrimSpace(f.Subcategory)

	switch f.Sort {
	case "":
		f.Sort = SortNewest
	case SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortNameAsc, SortNameDesc:
	default:
		return Filter{}, errors.Wrapf(ErrInvalidFilter, "unknown sort %q", f.Sort)
	}

	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return Filter{}, errors.Wrap(ErrInvalidFilter, "min_price is negative")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return Filter{}, errors.Wrap(ErrInvalidFilter, "max_price is negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Filter{}, errors.Wrap(ErrInvalidFilter, "min_price exceeds max_price")
	}

	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		return Filter{}, errors.Wrap(ErrInvalidFilter, "offset is negative")
	}

	return f, nil
}
