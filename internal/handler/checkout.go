package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/nilecart/internal/domain/cart"
	"github.com/xenking/nilecart/internal/domain/checkout"
	"github.com/xenking/nilecart/pkg/httpmiddleware"
)

func decodeAddress(d *jx.Decoder, addr *cart.DeliveryAddress, key string) error {
	var err error
	switch key {
	case "fullName":
		addr.FullName, err = d.Str()
	case "phoneNumber":
		addr.PhoneNumber, err = d.Str()
	case "street":
		addr.Street, err = d.Str()
	case "city":
		addr.City, err = d.Str()
	case "state":
		addr.State, err = d.Str()
	case "landmark":
		addr.Landmark, err = d.Str()
	default:
		err = d.Skip()
	}
	return err
}

// checkout accepts the address either as the body itself or nested under
// "address". A valid API key attaches the checkout to its user; anonymous
// checkouts are allowed.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var userID string
	if key := apiKey(r); key != "" {
		id, err := h.auth.Authenticate(ctx, key)
		if err != nil {
			fail(w, r, err)
			return
		}
		userID = id.UserID
	}

	var addr cart.DeliveryAddress
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key == "address" {
			return d.Obj(func(d *jx.Decoder, key string) error {
				return decodeAddress(d, &addr, key)
			})
		}
		return decodeAddress(d, &addr, key)
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.checkouts.Checkout(ctx, checkout.Request{
		SessionID: httpmiddleware.SessionIDFromContext(ctx),
		UserID:    userID,
		Address:   addr,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(res.ID) })
			e.Field("url", func(e *jx.Encoder) { e.Str(res.URL) })
			e.Field("message", func(e *jx.Encoder) { e.Str(res.Message) })
			e.Field("total", func(e *jx.Encoder) { writeAmount(e, res.Total) })
			e.Field("totalDisplay", func(e *jx.Encoder) { e.Str(h.converter.Display(res.Total)) })
			e.Field("itemCount", func(e *jx.Encoder) { e.Int(res.ItemCount) })
		})
	})
}
