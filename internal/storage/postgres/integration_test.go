//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/domain/product"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "nilecart",
				"POSTGRES_PASSWORD": "nilecart",
				"POSTGRES_DB":       "nilecart",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://nilecart:nilecart@%s:%s/nilecart?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool), "migrations are idempotent")
	return pool
}

func TestIntegration_Repositories(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	products := NewProductRepository(pool)
	users := NewUserRepository(pool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	seed := []product.Product{
		{ID: "p1", SellerID: "s1", Name: "Organic Honey", Description: "Wildflower honey", Category: "Groceries", Subcategory: "Pantry", Price: decimal.RequireFromString("12.99"), InStock: true, Approved: true, CreatedAt: now, UpdatedAt: now},
		{ID: "p2", SellerID: "s1", Name: "Coffee Beans", Description: "Arabica", Category: "Groceries", Subcategory: "Beverages", Price: decimal.RequireFromString("24.99"), InStock: true, Approved: true, CreatedAt: now.Add(time.Second), UpdatedAt: now},
		{ID: "p3", SellerID: "s2", Name: "Headphones", Description: "Noise cancelling", Category: "Electronics", Price: decimal.RequireFromString("199.99"), InStock: true, Approved: false, CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range seed {
		require.NoError(t, products.Upsert(ctx, p))
	}

	t.Run("search only approved", func(t *testing.T) {
		got, err := products.Search(ctx, product.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "p2", got[0].ID, "newest first")
	})

	t.Run("search text and price", func(t *testing.T) {
		got, err := products.Search(ctx, product.Filter{Query: "HONEY", MaxPrice: dec("20")})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, decimal.RequireFromString("12.99").Equal(got[0].Price))
	})

	t.Run("unapproved is hidden", func(t *testing.T) {
		_, err := products.GetByID(ctx, "p3")
		require.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("categories", func(t *testing.T) {
		got, err := products.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []product.Category{{Name: "Groceries", Subcategories: []string{"Beverages", "Pantry"}}}, got)
	})

	t.Run("seller scope", func(t *testing.T) {
		err := products.Delete(ctx, product.Scope{SellerID: "s1"}, "p3")
		require.ErrorIs(t, err, product.ErrNotFound)

		require.NoError(t, products.SetApproved(ctx, "p3", true))
		p, err := products.GetByID(ctx, "p3")
		require.NoError(t, err)
		assert.Equal(t, "s2", p.SellerID)

		require.NoError(t, products.Delete(ctx, product.Scope{}, "p3"))
	})

	t.Run("users", func(t *testing.T) {
		hash := auth.HashKey([]byte("pepper"), "key")
		id, err := users.UpsertUser(ctx, auth.Identity{UserID: "u1", Email: "a@nilecart.test", Role: auth.RoleAdmin, KeyHash: hash})
		require.NoError(t, err)
		assert.Equal(t, "u1", id)

		found, err := users.FindByKeyHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, found.Role)
	})
}
