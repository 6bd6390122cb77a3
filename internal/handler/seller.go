package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/domain/product"
)

func decodeDraft(r *http.Request) (product.Draft, error) {
	var (
		d        product.Draft
		hasPrice bool
	)
	d.InStock = true
	err := decodeObject(r, func(dec *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			d.Name, err = dec.Str()
		case "description":
			d.Description, err = dec.Str()
		case "category":
			d.Category, err = dec.Str()
		case "subcategory":
			d.Subcategory, err = dec.Str()
		case "imageUrl":
			d.ImageURL, err = dec.Str()
		case "inStock":
			d.InStock, err = dec.Bool()
		case "price":
			hasPrice = true
			if d.Price, err = decodeDecimal(dec); err != nil {
				return badRequest("price: %v", err)
			}
		default:
			err = dec.Skip()
		}
		return err
	})
	if err != nil {
		return product.Draft{}, err
	}
	if !hasPrice {
		return product.Draft{}, &product.InvalidDraftError{Field: "price", Reason: "required"}
	}
	return d, nil
}

func (h *Handler) listOwnProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.listings.List(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				h.encodeProduct(e, p, true)
			}
		})
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.listings.Create(r.Context(), auth.FromContext(r.Context()), d)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeProduct(e, *p, true) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.listings.Update(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), d)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p, true) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.Approve(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
