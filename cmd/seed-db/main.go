// Command seed-db applies migrations, loads the sample catalog and creates
// the admin and seller accounts used in development.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/nilecart/db"
	"github.com/xenking/nilecart/internal/catalogimport"
	"github.com/xenking/nilecart/internal/domain/auth"
	"github.com/xenking/nilecart/internal/storage/postgres"
)

// catalogSeller owns the sample catalog.
const catalogSeller = "nilecart"

type seedConfig struct {
	databaseURL  string
	productsFile string
	pepper       string
	adminKey     string
	sellerKey    string
}

func main() {
	var cfg seedConfig

	flag.StringVar(&cfg.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.productsFile, "products-file", "", "products JSON file; the embedded sample catalog when empty")
	flag.StringVar(&cfg.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or NILECART_API_KEY_PEPPER env)")
	flag.StringVar(&cfg.adminKey, "admin-key", "", "admin API key to seed (or NILECART_SEED_ADMIN_KEY env)")
	flag.StringVar(&cfg.sellerKey, "seller-key", "", "seller API key to seed (or NILECART_SEED_SELLER_KEY env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	fromEnv(&cfg.databaseURL, "DATABASE_URL")
	fromEnv(&cfg.pepper, "NILECART_API_KEY_PEPPER")
	fromEnv(&cfg.adminKey, "NILECART_SEED_ADMIN_KEY")
	fromEnv(&cfg.sellerKey, "NILECART_SEED_SELLER_KEY")
	if cfg.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func fromEnv(v *string, key string) {
	if *v == "" {
		*v = os.Getenv(key)
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg seedConfig) error {
	pool, err := postgres.NewPool(ctx, cfg.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), cfg.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	users := postgres.NewUserRepository(pool)
	pepper := []byte(cfg.pepper)
	for _, u := range []struct {
		key string
		id  auth.Identity
	}{
		{cfg.adminKey, auth.Identity{UserID: "admin", Email: "admin@nilecart.local", Role: auth.RoleAdmin}},
		{cfg.sellerKey, auth.Identity{UserID: catalogSeller, Email: "seller@nilecart.local", Role: auth.RoleSeller}},
	} {
		if u.key == "" {
			lg.Info("Skipping user without API key", zap.String("role", string(u.id.Role)))
			continue
		}
		u.id.KeyHash = auth.HashKey(pepper, u.key)
		id, err := users.UpsertUser(ctx, u.id)
		if err != nil {
			return errors.Wrapf(err, "seed %s", u.id.Role)
		}
		lg.Info("Seeded user", zap.String("id", id), zap.String("role", string(u.id.Role)))
	}
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, path string) error {
	data := db.SeedProducts
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	products, err := catalogimport.DecodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}

	lg.Info("Upserting products", zap.Int("count", len(products)))
	now := time.Now().UTC()
	for i, p := range products {
		if p.SellerID == "" {
			p.SellerID = catalogSeller
		}
		p.Approved = true
		// Stagger timestamps so "newest" keeps the file order.
		p.CreatedAt = now.Add(-time.Duration(i) * time.Second)
		p.UpdatedAt = p.CreatedAt
		if err := repo.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
