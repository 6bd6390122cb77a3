package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/domain/cart"
	"github.com/xenking/nilecart/internal/domain/checkout"
	"github.com/xenking/nilecart/internal/domain/product"
	"github.com/xenking/nilecart/internal/session"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var invalidDraft *product.InvalidDraftError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, product.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, session.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, cart.ErrAddressIncomplete), errors.As(err, &invalidDraft):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrHandoffUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an API error. Unexpected errors are logged and hidden
// from the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
