package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// SessionCookie names the cookie that carries the cart session ID.
	SessionCookie = "nilecart_session"
	// SessionHeader lets non-browser clients pass the session ID explicitly.
	SessionHeader = "X-Session-ID"
)

// SessionConfig configures session cookie issuance.
type SessionConfig struct {
	TTL    time.Duration
	Secure bool
}

type sessionKey struct{}

// SessionIDFromContext returns the session ID stored by Session, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// WithSessionID returns a copy of ctx carrying the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// Session returns a middleware that assigns every request a session ID. The
// ID comes from the X-Session-ID header or the session cookie when either
// holds a uuid; otherwise a new uuid is issued and set as a cookie. The ID is
// always echoed in X-Session-ID.
func Session(cfg SessionConfig) Middleware {
	maxAge := int(cfg.TTL.Seconds())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessionFromRequest(r)
			if !ok {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   maxAge,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, id)

			ctx := WithSessionID(r.Context(), id)
			ctx = zctx.With(ctx, zap.String("session_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get(SessionHeader); h != "" {
		if id, err := uuid.Parse(h); err == nil {
			return id.String(), true
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), true
		}
	}
	return "", false
}
