package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nilecart/internal/domain/auth"
)

var _ auth.Repository = (*UserRepository)(nil)

// UserRepository provides user lookups backed by PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository returns a UserRepository that uses db.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByKeyHash looks up a user by the HMAC-SHA256 hash of their API key.
// Returns an error wrapping pgx.ErrNoRows when no user has that key.
func (r *UserRepository) FindByKeyHash(ctx context.Context, hash string) (*auth.Identity, error) {
	var (
		id   auth.Identity
		role string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, email, role, api_key_hash FROM users WHERE api_key_hash = $1`, hash,
	).Scan(&id.UserID, &id.Email, &role, &id.KeyHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("finding user by key hash: %w", err)
	}
	id.Role = auth.ParseRole(role)
	return &id, nil
}

// UpsertUser creates the user or, when the email exists, updates its role and
// key hash. It returns the stored user ID.
func (r *UserRepository) UpsertUser(ctx context.Context, id auth.Identity) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx, `INSERT INTO users (id, email, role, api_key_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, api_key_hash = EXCLUDED.api_key_hash
		RETURNING id`,
		id.UserID, id.Email, string(id.Role), id.KeyHash,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("upserting user %q: %w", id.Email, err)
	}
	return userID, nil
}
