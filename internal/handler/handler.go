// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/domain/checkout"
	"github.com/xenking/nilecart/internal/domain/money"
	"github.com/xenking/nilecart/internal/domain/product"
	"github.com/xenking/nilecart/internal/session"
	"github.com/xenking/nilecart/pkg/httpmiddleware"
)

// Authenticator resolves API keys to identities.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (auth.Identity, error)
}

// Listings is the seller and admin side of the catalog.
type Listings interface {
	List(ctx context.Context, id auth.Identity) ([]product.Product, error)
	Create(ctx context.Context, id auth.Identity, d product.Draft) (*product.Product, error)
	Update(ctx context.Context, id auth.Identity, productID string, d product.Draft) (*product.Product, error)
	Delete(ctx context.Context, id auth.Identity, productID string) error
	Approve(ctx context.Context, id auth.Identity, productID string) error
}

// Checkouter runs checkouts.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
	Session      httpmiddleware.SessionConfig
	// MeterProvider defaults to a no-op provider.
	MeterProvider metric.MeterProvider
}

// Handler serves the /api routes.
type Handler struct {
	catalog   product.Repository
	listings  Listings
	carts     session.Store
	checkouts Checkouter
	auth      Authenticator
	converter *money.Converter

	imageBaseURL string
	session      httpmiddleware.Middleware
	commands     metric.Int64Counter
}

// New constructs a Handler.
func New(
	cfg Config,
	catalog product.Repository,
	listings Listings,
	carts session.Store,
	checkouts Checkouter,
	authenticator Authenticator,
	converter *money.Converter,
) (*Handler, error) {
	mp := cfg.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	commands, err := mp.Meter("nilecart/cart").Int64Counter("nilecart.cart.commands",
		metric.WithDescription("Cart commands applied, by kind"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "commands counter")
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = session.DefaultTTL
	}

	return &Handler{
		catalog:      catalog,
		listings:     listings,
		carts:        carts,
		checkouts:    checkouts,
		auth:         authenticator,
		converter:    converter,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		session:      httpmiddleware.Session(cfg.Session),
		commands:     commands,
	}, nil
}

// Routes registers every API route on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(h.session)
			r.Get("/cart", h.viewCart)
			r.Delete("/cart", h.clearCart)
			r.Post("/cart/items", h.addItem)
			r.Put("/cart/items/{id}", h.setQuantity)
			r.Delete("/cart/items/{id}", h.removeItem)
			r.Post("/checkout", h.checkout)
		})

		r.Route("/seller/products", func(r chi.Router) {
			r.Use(h.authenticate, requireRole(auth.Role.CanSell))
			r.Get("/", h.listOwnProducts)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate, requireRole(auth.Role.IsAdmin))
			r.Post("/products/{id}/approve", h.approveProduct)
		})
	})
}

// Router returns a chi router with mws applied and the API routes mounted.
// live and ready serve the probe endpoints.
func (h *Handler) Router(live, ready http.HandlerFunc, mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mws...)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Get("/livez", live)
	r.Get("/readyz", ready)
	h.Routes(r)
	return r
}

// RoutePattern returns the chi route pattern that matched r. It is meant for
// middleware that runs inside the router, after the handler.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
