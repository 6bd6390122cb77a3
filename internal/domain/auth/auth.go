// Package auth resolves API keys to identities and carries them through
// request contexts.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for any API key that does not resolve to an
// identity. Callers must not distinguish between the failure causes.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when an identity lacks the role an operation needs.
var ErrForbidden = errors.New("forbidden")

// Role is the permission level of a user.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a stored role name to a Role. Unknown names are buyers.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSeller, RoleAdmin:
		return Role(s)
	default:
		return RoleBuyer
	}
}

// CanSell reports whether the role may manage catalog listings.
func (r Role) CanSell() bool {
	return r == RoleSeller || r == RoleAdmin
}

// IsAdmin reports whether the role bypasses seller scoping.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is an authenticated user.
type Identity struct {
	UserID string
	Email  string
	Role   Role
	// KeyHash is the hex HMAC of the user's API key as stored.
	KeyHash string
}

// Anonymous is the identity of requests without an API key.
var Anonymous = Identity{Role: RoleBuyer}

// Repository provides lookup of users by API key hash.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Identity, error)
}

// HashKey returns the hex-encoded HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates raw API keys.
type Authenticator struct {
	users  Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given user repository
// and HMAC pepper.
func NewAuthenticator(users Repository, pepper []byte) *Authenticator {
	return &Authenticator{users: users, pepper: pepper}
}

// Authenticate hashes key, looks the hash up and compares it against the
// stored value in constant time.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (Identity, error) {
	if key == "" {
		return Identity{}, ErrUnauthorized
	}

	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	id, err := a.users.FindByKeyHash(ctx, hex.EncodeToString(hash))
	if err != nil || id == nil {
		return Identity{}, ErrUnauthorized
	}

	stored, err := hex.DecodeString(id.KeyHash)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, stored) != 1 {
		return Identity{}, ErrUnauthorized
	}

	return *id, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
