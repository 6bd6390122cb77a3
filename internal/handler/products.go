package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/money"
	"github.com/xenking/nilecart/internal/domain/product"
)

func parseFilter(r *http.Request) (product.Filter, error) {
	q := r.URL.Query()
	f := product.Filter{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Sort:        product.Sort(q.Get("sort")),
	}

	parsePrice := func(name string) (*decimal.Decimal, error) {
		v := q.Get(name)
		if v == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.Wrapf(product.ErrInvalidFilter, "%s is not a number", name)
		}
		return &d, nil
	}
	parseInt := func(name string) (int, error) {
		v := q.Get(name)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.Wrapf(product.ErrInvalidFilter, "%s is not an integer", name)
		}
		return n, nil
	}

	var err error
	if f.MinPrice, err = parsePrice("min_price"); err != nil {
		return product.Filter{}, err
	}
	if f.MaxPrice, err = parsePrice("max_price"); err != nil {
		return product.Filter{}, err
	}
	if f.Limit, err = parseInt("limit"); err != nil {
		return product.Filter{}, err
	}
	if f.Offset, err = parseInt("offset"); err != nil {
		return product.Filter{}, err
	}
	return f.Normalize()
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	products, err := h.catalog.Search(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				h.encodeProduct(e, p, false)
			}
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p, false) })
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range categories {
				e.Obj(func(e *jx.Encoder) {
					e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
					e.Field("subcategories", func(e *jx.Encoder) {
						e.Arr(func(e *jx.Encoder) {
							for _, s := range c.Subcategories {
								e.Str(s)
							}
						})
					})
				})
			}
		})
	})
}

// encodeProduct writes the public product view. The seller view adds
// ownership, approval and timestamps.
func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product, seller bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("subcategory", func(e *jx.Encoder) { e.Str(p.Subcategory) })
		e.Field("price", func(e *jx.Encoder) { writeAmount(e, p.Price) })
		e.Field("priceUsd", func(e *jx.Encoder) { e.Str(money.FormatUSD(p.Price)) })
		e.Field("priceDisplay", func(e *jx.Encoder) { e.Str(h.converter.Display(p.Price)) })
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(h.imageURL(p.ImageURL)) })
		e.Field("inStock", func(e *jx.Encoder) { e.Bool(p.InStock) })
		if seller {
			e.Field("sellerId", func(e *jx.Encoder) { e.Str(p.SellerID) })
			e.Field("approved", func(e *jx.Encoder) { e.Bool(p.Approved) })
			e.Field("createdAt", func(e *jx.Encoder) { e.Str(timestamp(p.CreatedAt)) })
			e.Field("updatedAt", func(e *jx.Encoder) { e.Str(timestamp(p.UpdatedAt)) })
		}
	})
}
