package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/nilecart/internal/domain/cart"
	"github.com/xenking/nilecart/pkg/httpmiddleware"
)

// maxLineQuantity bounds quantities accepted from clients.
const maxLineQuantity = 999

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	state, err := h.carts.View(r.Context(), httpmiddleware.SessionIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, state)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, func(e *cart.Engine) []cart.Command {
		return []cart.Command{cart.ClearCart{}}
	})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if productID == "" {
		fail(w, r, badRequest("productId is required"))
		return
	}
	if quantity < 1 || quantity > maxLineQuantity {
		fail(w, r, badRequest("quantity must be between 1 and %d", maxLineQuantity))
		return
	}

	p, err := h.catalog.GetByID(r.Context(), productID)
	if err != nil {
		fail(w, r, err)
		return
	}
	item := p.CartProduct()

	h.dispatch(w, r, func(e *cart.Engine) []cart.Command {
		current := 0
		if line, ok := e.State().Line(item.ID); ok {
			current = line.Quantity
		}
		cmds := []cart.Command{cart.AddItem{Product: item}}
		// The combined line never exceeds maxLineQuantity.
		if target := min(current+quantity, maxLineQuantity); target != current+1 {
			cmds = append(cmds, cart.UpdateQuantity{ProductID: item.ID, Quantity: target})
		}
		return cmds
	})
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		seen     bool
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		v, err := d.Int()
		quantity = v
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !seen {
		fail(w, r, badRequest("quantity is required"))
		return
	}
	if quantity > maxLineQuantity {
		fail(w, r, badRequest("quantity must be at most %d", maxLineQuantity))
		return
	}

	productID := chi.URLParam(r, "id")
	h.dispatch(w, r, func(*cart.Engine) []cart.Command {
		return []cart.Command{cart.UpdateQuantity{ProductID: productID, Quantity: quantity}}
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	h.dispatch(w, r, func(*cart.Engine) []cart.Command {
		return []cart.Command{cart.RemoveItem{ProductID: productID}}
	})
}

// dispatch applies the commands built by plan to the session cart and writes
// the resulting cart.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, plan func(e *cart.Engine) []cart.Command) {
	ctx := r.Context()
	var applied []cart.Command
	state, err := h.carts.Update(ctx, httpmiddleware.SessionIDFromContext(ctx), func(e *cart.Engine) error {
		applied = plan(e)
		for _, cmd := range applied {
			e.Dispatch(cmd)
		}
		return nil
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	for _, cmd := range applied {
		h.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", cmd.Kind())))
	}
	h.writeCart(w, http.StatusOK, state)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, s cart.State) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range s.Lines() {
						h.encodeLine(e, l)
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { writeAmount(e, s.Total()) })
			e.Field("totalDisplay", func(e *jx.Encoder) { e.Str(h.converter.Display(s.Total())) })
			e.Field("itemCount", func(e *jx.Encoder) { e.Int(s.ItemCount()) })
		})
	})
}

func (h *Handler) encodeLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(l.Category) })
		e.Field("price", func(e *jx.Encoder) { writeAmount(e, l.Price) })
		e.Field("priceDisplay", func(e *jx.Encoder) { e.Str(h.converter.Display(l.Price)) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(l.Image)) })
		e.Field("inStock", func(e *jx.Encoder) { e.Bool(l.InStock) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { writeAmount(e, l.Subtotal()) })
		e.Field("subtotalDisplay", func(e *jx.Encoder) { e.Str(h.converter.Display(l.Subtotal())) })
	})
}
